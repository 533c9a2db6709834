package main

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hopper/internal/planner"
	"hopper/internal/session"
)

type sshFlags struct {
	all            bool
	layout         string
	noTmux         bool
	windows        bool
	syncPanes      bool
	update         bool
	noBastion      bool
	requireBastion bool
	mount          string
}

func newSSHCmd(a *app) *cobra.Command {
	var f sshFlags

	cmd := &cobra.Command{
		Use:   "ssh QUERY... [-- COMMAND...]",
		Short: "Open ssh sessions to the hosts matching the queries",
		Long: `Resolve every query against the inventory and open one tmux pane (or
window) per matching host. When several hosts match on a terminal a picker
lets you choose; --all skips it. Arguments after -- run on every host.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, remote := args, ""
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				queries, remote = args[:dash], session.ShellJoin(args[dash:])
			}
			if len(queries) == 0 {
				return cmd.Usage()
			}
			return runSSH(cmd, a, f, queries, remote)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&f.all, "all", "a", false, "use every matching host without asking")
	flags.StringVarP(&f.layout, "layout", "l", "", "tmux layout from the config")
	flags.BoolVarP(&f.noTmux, "no-tmux", "n", false, "plain ssh in this terminal (single host)")
	flags.BoolVarP(&f.windows, "windows", "w", false, "one tmux window per host instead of panes")
	flags.BoolVarP(&f.syncPanes, "sync-panes", "s", false, "synchronize input across panes")
	flags.BoolVarP(&f.update, "update", "u", false, "refresh the inventory first")
	flags.BoolVar(&f.noBastion, "no-bastion", false, "connect directly even when a bastion is configured")
	flags.BoolVar(&f.requireBastion, "require-bastion", false, "fail unless the session goes through a bastion")
	flags.StringVar(&f.mount, "mount", "", "mount this remote directory on every host with sshfs")
	return cmd
}

func runSSH(cmd *cobra.Command, a *app, f sshFlags, queries []string, remote string) error {
	svc, err := a.inventory()
	if err != nil {
		return err
	}

	res, err := svc.Resolve(cmd.Context(), queries, f.update)
	if err != nil {
		return err
	}
	reportInventory(res.Inventory)

	noTmux := f.noTmux || a.cfg.SSH.NoTmux
	hosts, err := a.choose(res.Hosts(), f.all, !noTmux)
	if err != nil {
		return err
	}

	opts := a.plannerOptions()
	opts.Layout = f.layout
	opts.NoBastion = f.noBastion
	opts.RequireBastion = opts.RequireBastion || f.requireBastion
	opts.MountPath = f.mount
	opts.PaneCommand = remote

	plans, err := planner.PlanHosts(hosts, queries, opts)
	if err != nil {
		return err
	}
	for _, p := range plans {
		log.Debug().Str("host", p.Host.Name).Str("address", p.Host.Address).
			Str("route", string(p.Route.Kind)).Str("title", p.Title).Msg("Planned session")
	}

	runner := a.runner(a.flags.dryRun)
	exec := &session.Executor{
		Runner: runner,
		SSH:    a.sshOptions(),
		Tmux: session.TmuxOptions{
			SessionName: "hopper-" + strings.SplitN(uuid.NewString(), "-", 2)[0],
			Windows:     f.windows,
			SyncPanes:   f.syncPanes,
			InsideTmux:  os.Getenv("TMUX") != "",
		},
		Mounter: a.mounter(runner),
		NoTmux:  noTmux,
	}
	return exec.Execute(cmd.Context(), plans)
}
