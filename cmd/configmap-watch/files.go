package main

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/0xmhha/configmap-watch/pkg/display"
	"github.com/0xmhha/configmap-watch/pkg/fingerprint"
	"github.com/0xmhha/configmap-watch/pkg/journal"
)

func (c *cli) newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a directory under the provider root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			formatter, err := newFormatter(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			p, err := newProvider(cfg, nil, log)
			if err != nil {
				return err
			}
			defer p.Close()

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}

			return formatter.FormatDirectory(cmd.OutOrStdout(), filepath.Join(p.Root(), dir), p.GetDirectoryContents(dir))
		},
	}
}

func (c *cli) newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <file>",
		Short: "Show a file's size, fingerprint and last journaled change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			formatter, err := newFormatter(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			p, err := newProvider(cfg, nil, log)
			if err != nil {
				return err
			}
			defer p.Close()

			status := display.FileStatus{FileInfo: p.GetFileInfo(args[0])}

			if status.Exists && !status.IsDir {
				algo, err := fingerprint.ParseAlgorithm(cfg.Provider.Algorithm)
				if err != nil {
					return err
				}
				status.Fingerprint, err = fingerprint.File(status.PhysicalPath, algo)
				if err != nil {
					return err
				}
			}

			if cfg.Journal.Enabled {
				// A running watch holds the journal lock; stat still works without it.
				j, err := openJournal(cfg, log)
				if err != nil {
					log.Warn("journal unavailable", "error", err)
				} else {
					defer closeJournal(j, log)
					entry, err := j.Latest(args[0])
					switch {
					case err == nil:
						status.LastChange = &entry
					case !errors.Is(err, journal.ErrNotFound):
						log.Warn("failed to read last change", "error", err)
					}
				}
			}

			return formatter.FormatFileStatus(cmd.OutOrStdout(), status)
		},
	}
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [file]",
		Short: "Show journaled changes, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			formatter, err := newFormatter(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			j, err := openJournal(cfg, log)
			if err != nil {
				return err
			}
			defer closeJournal(j, log)

			key := ""
			if len(args) == 1 {
				key = args[0]
			}

			entries, err := j.History(key, limit)
			if err != nil {
				return err
			}

			return formatter.FormatHistory(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries (0 for all)")

	return cmd
}
