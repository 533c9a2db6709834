// Command hopper resolves host queries against a cached inventory and opens
// ssh, tmux and sshfs sessions to the matching hosts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, newApp(stdout, stderr), args)
}

func execute(ctx context.Context, a *app, args []string) int {
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Error: %s\n", describe(err))
		log.Debug().Err(err).Msg("Command failed")
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "hopper",
		Short: "Open ssh sessions to hosts from your inventory",
		Long: `hopper aggregates hosts from csv files, AWS EC2 and New Relic into a local
cache, matches queries against it and opens ssh sessions in tmux, optionally
through a bastion and with remote directories mounted over sshfs.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.configPath, "config", "", "config file (default: search $HOPPER_CONFIG, ./hopper.yaml, ~/.config/hopper)")
	flags.BoolVarP(&a.flags.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVarP(&a.flags.dryRun, "dry-run", "d", false, "print commands instead of running them")

	root.AddCommand(
		newSSHCmd(a),
		newMountCmd(a),
		newUnmountCmd(a),
		newListMountsCmd(a),
		newListInventoryCmd(a),
		newUpdateCmd(a),
		newCheckCmd(a),
		newRunCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hopper %s\n", Version)
			if BuildTime != "unknown" {
				fmt.Fprintf(out, "Built: %s\n", BuildTime)
			}
			if GitCommit != "unknown" {
				fmt.Fprintf(out, "Commit: %s\n", GitCommit)
			}
		},
	}
}
