package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hopper/internal/codec"
	"hopper/internal/domain"
	"hopper/internal/session"
)

func newRunCmd(a *app) *cobra.Command {
	var update bool

	cmd := &cobra.Command{
		Use:   "run TASK [QUERY...]",
		Short: "Run a configured ansible task against the inventory",
		Long: `Export the filtered inventory, or the hosts matching the queries, as an
ansible inventory and run the playbooks configured for TASK under run: in
the config with ansible-playbook.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, queries := args[0], args[1:]
			playbooks, err := a.cfg.Playbooks(task)
			if err != nil {
				return err
			}

			svc, err := a.inventory()
			if err != nil {
				return err
			}
			var (
				inv   *domain.InventorySnapshot
				hosts []domain.HostRecord
			)
			if len(queries) == 0 {
				current, records, err := svc.Table(cmd.Context(), update)
				if err != nil {
					return err
				}
				reportInventory(current)
				inv, hosts = current.Snapshot, records
			} else {
				res, err := svc.Resolve(cmd.Context(), queries, update)
				if err != nil {
					return err
				}
				reportInventory(res.Inventory)
				inv, hosts = res.Inventory.Snapshot, res.Hosts()
			}
			switch {
			case len(hosts) > 0:
			case len(queries) > 0:
				return &domain.EmptyMatchError{Queries: queries}
			default:
				return errors.New("the inventory has no hosts")
			}

			snap := *inv
			snap.Records = hosts
			path, err := writeAnsibleInventory(&snap)
			if err != nil {
				return err
			}
			defer os.Remove(path)

			log.Info().Str("task", task).Int("hosts", len(hosts)).Strs("playbooks", playbooks).Msg("Running task")
			runner := a.runner(a.flags.dryRun)
			if err := runner.Require("ansible-playbook"); err != nil {
				return err
			}
			argv := append([]string{"-i", path}, playbooks...)
			return runner.Interactive(cmd.Context(), session.Cmd("ansible-playbook", argv...))
		},
	}

	cmd.Flags().BoolVarP(&update, "update", "u", false, "refresh the inventory first")
	return cmd
}

// writeAnsibleInventory exports snap to a temporary inventory file
func writeAnsibleInventory(snap *domain.InventorySnapshot) (string, error) {
	f, err := os.CreateTemp("", "hopper-inventory-*.yml")
	if err != nil {
		return "", fmt.Errorf("create ansible inventory: %w", err)
	}
	if err := codec.NewAnsibleCodec().Export(snap, f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write ansible inventory: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write ansible inventory: %w", err)
	}
	return f.Name(), nil
}
