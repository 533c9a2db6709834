package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hopper/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration",
	}
	cmd.AddCommand(newConfigInitCmd(a), newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write the default configuration to the --config path, or to
$XDG_CONFIG_HOME/hopper/config.yaml (~/.config/hopper/config.yaml) when no
path is given. An existing file is kept unless --force is set.`,
		Args: cobra.NoArgs,
		// The file being created may not exist or parse yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.flags.configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("check config: %w", err)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Summarize the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if a.cfgPath != "" {
				fmt.Fprintf(out, "Config: %s\n", a.cfgPath)
			} else {
				fmt.Fprintln(out, "Config: built-in defaults (run hopper config init to write them)")
			}
			fmt.Fprintln(out, a.cfg.Summary())
			return nil
		},
	}
}
