package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hopper/internal/codec"
	"hopper/internal/inventory"
	"hopper/internal/watcher"
)

func newListInventoryCmd(a *app) *cobra.Command {
	var (
		format string
		update bool
	)

	cmd := &cobra.Command{
		Use:   "list-inventory",
		Short: "Print the filtered inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := codec.ForFormat(format)
			if err != nil {
				return err
			}

			svc, err := a.inventory()
			if err != nil {
				return err
			}
			inv, records, err := svc.Table(cmd.Context(), update)
			if err != nil {
				return err
			}
			reportInventory(inv)

			snap := *inv.Snapshot
			snap.Records = records
			return exporter.Export(&snap, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table",
		"output format ("+strings.Join(codec.Formats(), ", ")+")")
	cmd.Flags().BoolVarP(&update, "update", "u", false, "refresh the inventory first")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh the inventory cache from every source",
		Long: `Fetch every configured source and replace the cached inventory. With
--watch, keep running and refresh again whenever a csv inventory file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.inventory()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			refresh := func() error {
				agg, err := svc.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				printAggregation(out, agg, len(svc.Sources()))
				return nil
			}
			if err := refresh(); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			var files []string
			for _, src := range a.cfg.EffectiveSources() {
				if strings.EqualFold(src.Type, "csv") {
					files = append(files, src.File)
				}
			}
			w, err := watcher.New(files, watcher.DefaultDebounce)
			if err != nil {
				return fmt.Errorf("--watch: %w", err)
			}

			err = w.Run(cmd.Context(), func(string) {
				if err := refresh(); err != nil {
					log.Error().Err(err).Msg("Inventory refresh failed, keeping the cached inventory")
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "refresh again whenever a csv inventory file changes")
	return cmd
}

func printAggregation(out io.Writer, agg *inventory.Aggregation, sources int) {
	fmt.Fprintf(out, "Inventory updated: %d hosts from %d sources\n", agg.Snapshot.Len(), sources)
	for _, f := range agg.Failures() {
		fmt.Fprintf(out, "  failed: %s: %s\n", f.Source, f.Reason)
	}

	names := make([]string, 0, len(agg.Skipped))
	for source := range agg.Skipped {
		names = append(names, source)
	}
	sort.Strings(names)
	for _, source := range names {
		skipped := agg.Skipped[source]
		for _, s := range skipped {
			log.Debug().Str("source", source).Str("ref", s.Ref).Str("reason", s.Reason).Msg("Skipped record")
		}
		fmt.Fprintf(out, "  skipped: %s: %d malformed records\n", source, len(skipped))
	}
}
