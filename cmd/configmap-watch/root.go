package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/config"
	"github.com/0xmhha/configmap-watch/pkg/display"
	"github.com/0xmhha/configmap-watch/pkg/fingerprint"
	"github.com/0xmhha/configmap-watch/pkg/journal"
	"github.com/0xmhha/configmap-watch/pkg/logger"
	"github.com/0xmhha/configmap-watch/pkg/provider"
)

// cli holds the command tree and the flags shared by every command.
type cli struct {
	root  *cobra.Command
	stdin io.Reader

	configPath string
	rootDir    string
	format     string
	logLevel   string
}

func newCLI(stdin io.Reader, stdout, stderr io.Writer) *cli {
	c := &cli{stdin: stdin}

	root := &cobra.Command{
		Use:   "configmap-watch",
		Short: "Watch mounted configuration files for changes",
		Long: `configmap-watch serves a configuration directory (typically a Kubernetes
ConfigMap volume), detects file changes by polling content fingerprints,
and keeps a journal of every change it sees.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.SetVersionTemplate("configmap-watch {{.Version}}\n")
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to configuration file")
	flags.StringVar(&c.rootDir, "root", "", "directory to serve (overrides provider.root)")
	flags.StringVarP(&c.format, "format", "o", "", "output format (table, json, simple)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.newWatchCmd(),
		c.newLsCmd(),
		c.newStatCmd(),
		c.newHistoryCmd(),
		c.newSettingsCmd(),
		c.newConfigCmd(),
		c.newVersionCmd(),
	)

	c.root = root
	return c
}

// loadConfig loads configuration and applies command-line overrides.
func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.rootDir != "" {
		cfg.Provider.Root = c.rootDir
	}
	if c.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(c.logLevel)
	}
	if c.format != "" {
		cfg.Display.DefaultFormat = c.format
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})
}

// newFormatter picks the configured format, or table on a terminal and
// simple otherwise.
func newFormatter(cfg *config.Config, w io.Writer) (display.Formatter, error) {
	name := cfg.Display.DefaultFormat
	if name == "" {
		name = string(display.FormatSimple)
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			name = string(display.FormatTable)
		}
	}

	format, err := display.ParseFormat(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, name)
	}

	return display.New(display.Config{
		Format:           format,
		FullFingerprints: cfg.Display.FullFingerprints,
	}), nil
}

func newProvider(cfg *config.Config, rec changetoken.Recorder, log logger.Logger) (*provider.Provider, error) {
	algo, err := fingerprint.ParseAlgorithm(cfg.Provider.Algorithm)
	if err != nil {
		return nil, err
	}

	return provider.New(provider.Config{
		Root:         cfg.Provider.Root,
		PollInterval: cfg.Provider.PollInterval,
		Algorithm:    algo,
		Recorder:     rec,
	}, log)
}

func openJournal(cfg *config.Config, log logger.Logger) (journal.Journal, error) {
	j, err := journal.Open(journal.Config{
		DBPath:    cfg.Journal.DBPath,
		Retention: cfg.Journal.Retention,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, nil
}

func closeJournal(j journal.Journal, log logger.Logger) {
	if j == nil {
		return
	}
	if err := j.Close(); err != nil {
		log.Error("failed to close journal", "error", err)
	}
}
