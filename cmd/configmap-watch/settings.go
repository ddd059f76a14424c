package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/0xmhha/configmap-watch/pkg/display"
	"github.com/0xmhha/configmap-watch/pkg/settings"
)

// settingsOptions holds flags of the settings command.
type settingsOptions struct {
	env    string
	key    string
	follow bool
}

func (c *cli) newSettingsCmd() *cobra.Command {
	opts := &settingsOptions{}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the merged appsettings view",
		Long: `Settings layers <base>.json and the optional <base>.<env>.json from the
provider root and prints the merged keys. With --follow it keeps running and
prints the view again after every reload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runSettings(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.env, "env", "e", "", "environment name (overrides settings.environment)")
	cmd.Flags().StringVarP(&opts.key, "key", "k", "", "print a single colon-separated key, e.g. Logging:Level")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "keep running and print after every reload")

	return cmd
}

func (c *cli) runSettings(cmd *cobra.Command, opts *settingsOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.env != "" {
		cfg.Settings.Environment = opts.env
	}

	log := newLogger(cfg)
	out := cmd.OutOrStdout()

	formatter, err := newFormatter(cfg, out)
	if err != nil {
		return err
	}

	p, err := newProvider(cfg, nil, log)
	if err != nil {
		return err
	}
	defer p.Close()

	s, err := settings.Load(p, settings.SourcesFor(cfg.Settings.BaseName, cfg.Settings.Environment), log)
	if err != nil {
		return err
	}
	defer s.Close()

	// Reloads run on poll goroutines.
	var mu sync.Mutex
	show := func() error {
		mu.Lock()
		defer mu.Unlock()
		return printSettings(formatter, out, s, opts.key)
	}

	if err := show(); err != nil {
		return err
	}
	if !opts.follow {
		return nil
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	reloadErrs := make(chan error, 1)

	h, err := s.OnReload(func(interface{}) {
		if err := show(); err != nil {
			select {
			case reloadErrs <- err:
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	defer h.Dispose()

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case err := <-reloadErrs:
			return err
		}
	})

	return g.Wait()
}

func printSettings(formatter display.Formatter, out io.Writer, s *settings.Settings, key string) error {
	if key == "" {
		return formatter.FormatSettings(out, s.Flatten())
	}

	value, ok := s.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", settings.ErrKeyNotFound, key)
	}

	switch value.(type) {
	case map[string]interface{}, []interface{}:
		prefix := key + settings.KeyDelimiter
		section := map[string]string{}
		for k, v := range s.Flatten() {
			if len(k) > len(prefix) && strings.EqualFold(k[:len(prefix)], prefix) {
				section[k] = v
			}
		}
		return formatter.FormatSettings(out, section)
	default:
		_, err := fmt.Fprintln(out, s.String(key))
		return err
	}
}
