package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hopper/internal/planner"
	"hopper/internal/probe"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		update    bool
		noBastion bool
		cfg       probe.Config
	)

	cmd := &cobra.Command{
		Use:   "check QUERY...",
		Short: "Check that the matching hosts accept an ssh login",
		Long: `Resolve the queries and complete an ssh handshake and key authentication
with every matching host, through the bastion when one is configured. No
command is run on the hosts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.inventory()
			if err != nil {
				return err
			}
			res, err := svc.Resolve(cmd.Context(), args, update)
			if err != nil {
				return err
			}
			reportInventory(res.Inventory)

			opts := a.plannerOptions()
			opts.NoBastion = noBastion
			plans, err := planner.PlanHosts(res.Hosts(), args, opts)
			if err != nil {
				return err
			}

			if cfg.User == "" {
				cfg.User = a.cfg.SSH.User
			}
			prober, err := probe.New(cfg)
			if err != nil {
				return err
			}
			defer prober.Close()

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range prober.CheckAll(cmd.Context(), plans) {
				if r.OK {
					fmt.Fprintf(out, "ok    %-24s %-22s %-11s %s %s\n",
						r.Host, r.Address, r.Route, r.Latency.Round(time.Millisecond), r.ServerVersion)
					continue
				}
				failed++
				fmt.Fprintf(out, "FAIL  %-24s %-22s %-11s %v\n", r.Host, r.Address, r.Route, r.Err)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d hosts unreachable", failed, len(plans))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&update, "update", "u", false, "refresh the inventory first")
	flags.BoolVar(&noBastion, "no-bastion", false, "connect directly even when a bastion is configured")
	flags.StringVar(&cfg.User, "user", "", "login user (default: ssh.user or $USER)")
	flags.IntVar(&cfg.Port, "port", probe.DefaultPort, "ssh port")
	flags.DurationVar(&cfg.Timeout, "timeout", probe.DefaultTimeout, "per-host deadline")
	flags.StringSliceVarP(&cfg.KeyFiles, "identity", "i", nil, "private key files (default: ~/.ssh/id_*)")
	flags.BoolVar(&cfg.NoAgent, "no-agent", false, "do not use keys from ssh-agent")
	flags.StringVar(&cfg.KnownHostsFile, "known-hosts", "", "known_hosts file (default: ~/.ssh/known_hosts)")
	flags.BoolVar(&cfg.InsecureIgnoreHostKey, "insecure", false, "skip host key verification")
	flags.IntVar(&cfg.Concurrency, "concurrency", probe.DefaultConcurrency, "hosts probed at once")
	return cmd
}
