package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xmhha/configmap-watch/pkg/config"
)

func (c *cli) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management (show, path, reset)",
	}

	cmd.AddCommand(c.newConfigShowCmd(), c.newConfigPathCmd(), c.newConfigResetCmd())
	return cmd
}

func (c *cli) newConfigShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "# Current Configuration\n# Source: %s\n\n", c.configSource())
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON instead of YAML")
	return cmd
}

func (c *cli) newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file search paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			paths := []string{
				"./configmap-watch.yaml",
				config.DefaultConfigPath(),
			}
			if c.configPath != "" {
				paths = append([]string{c.configPath}, paths...)
			} else if env := os.Getenv(config.EnvConfig); env != "" {
				paths = append([]string{env}, paths...)
			}

			_, _ = fmt.Fprintln(out, "Configuration file search paths (in order of precedence):")
			_, _ = fmt.Fprintln(out)
			for i, p := range paths {
				exists := "not found"
				if _, err := os.Stat(p); err == nil {
					exists = "found"
				}
				_, _ = fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, p, exists)
			}
			_, _ = fmt.Fprintln(out)
			_, err := fmt.Fprintln(out, "Active configuration:", c.configSource())
			return err
		},
	}
}

func (c *cli) newConfigResetCmd() *cobra.Command {
	var (
		force  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Write the default configuration to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			path := output
			if path == "" {
				path = config.DefaultConfigPath()
			}

			if _, err := os.Stat(path); err == nil && !force {
				_, _ = fmt.Fprintf(out, "Configuration file already exists at: %s\n", path)
				_, _ = fmt.Fprint(out, "Overwrite? [y/N]: ")

				response, _ := bufio.NewReader(c.stdin).ReadString('\n')
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "y" && response != "yes" {
					_, _ = fmt.Fprintln(out, "Reset cancelled.")
					return nil
				}
			}

			if err := config.Save(config.Default(), path); err != nil {
				return err
			}

			_, err := fmt.Fprintf(out, "Configuration reset to defaults at: %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")
	cmd.Flags().StringVar(&output, "output", "", "output path (default: ~/.config/configmap-watch/config.yaml)")
	return cmd
}

// configSource returns the file the loader reads, or a note that only
// defaults apply.
func (c *cli) configSource() string {
	if path := config.NewLoader(c.configPath).Path(); path != "" {
		return path
	}
	return "defaults (no config file found)"
}
