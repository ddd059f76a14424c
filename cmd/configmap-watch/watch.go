package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/journal"
	"github.com/0xmhha/configmap-watch/pkg/provider"
)

// watchOptions holds flags of the watch command.
type watchOptions struct {
	interval  time.Duration
	duration  time.Duration
	noJournal bool
}

func (c *cli) newWatchCmd() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [files...]",
		Short: "Poll files and print every detected change",
		Long: `Watch polls each file under the provider root and prints a line for every
change. Files default to provider.files, or every file in the root when that
list is empty. Changes are recorded in the journal unless --no-journal is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "poll interval (overrides provider.poll_interval)")
	cmd.Flags().DurationVar(&opts.duration, "for", 0, "stop after this long (default: until interrupted)")
	cmd.Flags().BoolVar(&opts.noJournal, "no-journal", false, "do not record changes")

	return cmd
}

func (c *cli) runWatch(cmd *cobra.Command, args []string, opts *watchOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.interval > 0 {
		cfg.Provider.PollInterval = opts.interval
	}

	log := newLogger(cfg)
	out := cmd.OutOrStdout()

	formatter, err := newFormatter(cfg, out)
	if err != nil {
		return err
	}

	var j journal.Journal
	if cfg.Journal.Enabled && !opts.noJournal {
		j, err = openJournal(cfg, log)
		if err != nil {
			return err
		}
		defer closeJournal(j, log)
	}

	ctx := cmd.Context()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)

	changes := make(chan changetoken.Change, 64)
	p, err := newProvider(cfg, changeRecorder(gctx, j, changes), log)
	if err != nil {
		return err
	}

	files := args
	if len(files) == 0 {
		files = cfg.Provider.Files
	}
	if len(files) == 0 {
		files = regularFiles(p)
	}
	if len(files) == 0 {
		_ = p.Close()
		return fmt.Errorf("no files to watch under %s", p.Root())
	}

	for _, file := range files {
		if !p.GetFileInfo(file).Exists {
			log.Warn("file does not exist, it will not be watched", "file", file)
		}
		p.Watch(file)
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s in %s every %s - press Ctrl+C to stop\n",
		strings.Join(files, ", "), p.Root(), cfg.Provider.PollInterval)

	g.Go(func() error {
		<-gctx.Done()
		return p.Close()
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case change := <-changes:
				if err := formatter.FormatChange(out, change); err != nil {
					return fmt.Errorf("failed to print change: %w", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// changeRecorder journals each change, when j is set, and forwards it to
// changes. Sends give up once ctx is done so a stopped printer never
// blocks a poll.
func changeRecorder(ctx context.Context, j journal.Journal, changes chan<- changetoken.Change) changetoken.RecorderFunc {
	return func(change changetoken.Change) error {
		var recordErr error
		if j != nil {
			recordErr = j.RecordChange(change)
		}
		select {
		case changes <- change:
		case <-ctx.Done():
		}
		return recordErr
	}
}

// regularFiles lists the non-hidden files of the provider root. Hidden
// entries cover the ..data indirection of ConfigMap volumes.
func regularFiles(p *provider.Provider) []string {
	var files []string
	for _, entry := range p.GetDirectoryContents("").Entries {
		if entry.IsDir || strings.HasPrefix(entry.Name, ".") {
			continue
		}
		files = append(files, entry.Name)
	}
	return files
}
