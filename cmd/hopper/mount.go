package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hopper/internal/domain"
	"hopper/internal/planner"
	"hopper/internal/session"
)

func newMountCmd(a *app) *cobra.Command {
	var all, update, noBastion bool

	cmd := &cobra.Command{
		Use:   "mount QUERY:/REMOTE/DIR",
		Short: "Mount a remote directory of the matching hosts with sshfs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, remote, ok := strings.Cut(args[0], ":")
			if !ok || query == "" || remote == "" {
				return fmt.Errorf("expected QUERY:/REMOTE/DIR, got %q", args[0])
			}

			svc, err := a.inventory()
			if err != nil {
				return err
			}
			res, err := svc.Resolve(cmd.Context(), []string{query}, update)
			if err != nil {
				return err
			}
			reportInventory(res.Inventory)

			hosts, err := a.choose(res.Hosts(), all, true)
			if err != nil {
				return err
			}

			opts := a.plannerOptions()
			opts.NoBastion = noBastion
			opts.MountPath = remote
			plans, err := planner.PlanHosts(hosts, []string{query}, opts)
			if err != nil {
				return err
			}

			mounter := a.mounter(a.runner(a.flags.dryRun))
			var errs []error
			for _, p := range plans {
				if err := mounter.Mount(cmd.Context(), p); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "use every matching host without asking")
	cmd.Flags().BoolVarP(&update, "update", "u", false, "refresh the inventory first")
	cmd.Flags().BoolVar(&noBastion, "no-bastion", false, "connect directly even when a bastion is configured")
	return cmd
}

func newUnmountCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "unmount (-a | QUERY...)",
		Short: "Unmount sshfs mounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("give either --all or at least one query")
			}

			mounter := a.mounter(a.runner(a.flags.dryRun))
			mounts, err := mounter.Mounts(cmd.Context())
			if err != nil {
				return err
			}

			targets := mountpoints(mounts)
			if !all {
				svc, err := a.inventory()
				if err != nil {
					return err
				}
				res, err := svc.Resolve(cmd.Context(), args, false)
				if err != nil {
					return err
				}
				wanted := make(map[string]bool)
				for _, h := range res.Hosts() {
					wanted[domain.MountpointFor(a.cfg.SSHFS.MountRoot, h.Name)] = true
				}
				targets = targets[:0]
				for _, mp := range mountpoints(mounts) {
					if wanted[mp] {
						targets = append(targets, mp)
					}
				}
			}

			if len(targets) == 0 {
				log.Info().Str("root", a.cfg.SSHFS.MountRoot).Msg("Nothing to unmount")
				return nil
			}

			var errs []error
			for _, mp := range targets {
				if err := mounter.Unmount(cmd.Context(), mp); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "unmount every mount under the mount root")
	return cmd
}

func newListMountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-mounts",
		Short: "List active sshfs mounts under the mount root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mounts, err := a.mounter(a.runner(false)).Mounts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(mounts) == 0 {
				fmt.Fprintf(out, "No sshfs mounts under %s\n", a.cfg.SSHFS.MountRoot)
				return nil
			}
			for _, mt := range mounts {
				fmt.Fprintf(out, "%s -> %s\n", mt.Source, mt.Mountpoint)
			}
			return nil
		},
	}
}

func mountpoints(mounts []session.Mount) []string {
	out := make([]string, 0, len(mounts))
	for _, mt := range mounts {
		out = append(out, mt.Mountpoint)
	}
	return out
}
