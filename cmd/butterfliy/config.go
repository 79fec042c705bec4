package main

import (
	"errors"
	"fmt"
	"os"

	"butterfliy/pkg/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage Butterfliy configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (BUTTERFLIY_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default values",
		Long: `Write a configuration file with every option set to its default.

The file is created as '.butterfliy.yaml' in the current directory unless a
different path is given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configFile
			if path == "" {
				path = ".butterfliy.yaml"
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			g.printer.Success("Configuration written to %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging flags, environment, .env files,
the configuration file and defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			g.printer.Raw(string(out))
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long:  `Load the configuration from every source and report each invalid value.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configFile
			if path == "" {
				path = config.FindConfigFile()
			}

			cfg := config.DefaultConfig()
			if err := cfg.LoadFromFile(path); err != nil {
				return err
			}
			if err := cfg.LoadFromEnv(); err != nil {
				return err
			}
			cfg.MergeCommandLineFlags(flagOverrides(cmd, g))

			if err := cfg.Validate(); err != nil {
				var joined interface{ Unwrap() []error }
				if errors.As(err, &joined) {
					for _, e := range joined.Unwrap() {
						g.printer.Error("invalid", e)
					}
				}
				return errors.New("configuration is invalid")
			}

			if path == "" {
				path = "defaults"
			}
			g.printer.Success("Configuration is valid (%s)", path)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd, validateCmd)
	return cmd
}
