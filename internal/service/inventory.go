package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"hopper/internal/adapter"
	"hopper/internal/domain"
	"hopper/internal/inventory"
	"hopper/internal/repository"
)

// Options configure the inventory workflow
type Options struct {
	Rule          *domain.FilterRule
	Fuzzy         bool
	UpdateAtStart bool
}

// Inventory is the snapshot a command operates on
type Inventory struct {
	Snapshot *domain.InventorySnapshot
	// Refreshed is true when Snapshot comes from a refresh in this process
	Refreshed bool
	// RefreshErr is set when a refresh failed and the cached snapshot was used
	RefreshErr error
}

// Resolution is the outcome of resolving queries
type Resolution struct {
	Inventory *Inventory
	Results   []domain.MatchResult
}

// Hosts returns the matched hosts in query then match order
func (r *Resolution) Hosts() []domain.HostRecord {
	return domain.Hosts(r.Results)
}

// InventoryService coordinates sources, cache and matching
type InventoryService struct {
	store      repository.SnapshotStore
	registry   *adapter.Registry
	aggregator *inventory.Aggregator
	opts       Options
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store repository.SnapshotStore, registry *adapter.Registry, opts Options) *InventoryService {
	return &InventoryService{
		store:      store,
		registry:   registry,
		aggregator: inventory.NewAggregator(store),
		opts:       opts,
	}
}

// Strategy returns the interactive matching strategy
func (s *InventoryService) Strategy() domain.Strategy {
	return inventory.StrategyFor(s.opts.Fuzzy)
}

// Sources lists the registered sources
func (s *InventoryService) Sources() []adapter.SourceInfo {
	return s.registry.List()
}

// Refresh aggregates every source and stores the result
func (s *InventoryService) Refresh(ctx context.Context) (*inventory.Aggregation, error) {
	return s.aggregator.Run(ctx, s.registry)
}

// Current returns the snapshot to operate on, refreshing first when forced or
// when inventory.update_at_start is set.
func (s *InventoryService) Current(ctx context.Context, force bool) (*Inventory, error) {
	if force || s.opts.UpdateAtStart {
		agg, err := s.Refresh(ctx)
		if err == nil {
			return &Inventory{Snapshot: agg.Snapshot, Refreshed: true}, nil
		}

		cached, loadErr := s.store.Load(ctx)
		if loadErr != nil {
			return nil, err
		}
		log.Warn().Err(err).Str("snapshot", cached.ID).Msg("Refresh failed, using cached inventory")
		return &Inventory{Snapshot: cached, RefreshErr: err}, nil
	}

	cached, err := s.store.Load(ctx)
	switch {
	case err == nil:
		return &Inventory{Snapshot: cached}, nil
	case errors.Is(err, repository.ErrNoSnapshot):
		log.Debug().Msg("Inventory cache empty, refreshing")
	case errors.Is(err, domain.ErrCacheCorrupt):
		log.Warn().Err(err).Msg("Inventory cache unreadable, refreshing")
	default:
		return nil, fmt.Errorf("load inventory cache: %w", err)
	}

	agg, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return &Inventory{Snapshot: agg.Snapshot, Refreshed: true}, nil
}

// Table returns the filtered records of the current snapshot
func (s *InventoryService) Table(ctx context.Context, force bool) (*Inventory, []domain.HostRecord, error) {
	inv, err := s.Current(ctx, force)
	if err != nil {
		return nil, nil, err
	}
	return inv, inventory.Filter(inv.Snapshot, s.opts.Rule), nil
}

// Resolve matches queries against the filtered current snapshot using the
// configured strategy.
func (s *InventoryService) Resolve(ctx context.Context, queries []string, force bool) (*Resolution, error) {
	return s.ResolveWith(ctx, queries, s.Strategy(), force)
}

// ResolveWith is Resolve with an explicit strategy
func (s *InventoryService) ResolveWith(ctx context.Context, queries []string, strategy domain.Strategy, force bool) (*Resolution, error) {
	inv, table, err := s.Table(ctx, force)
	if err != nil {
		return nil, err
	}

	results := inventory.Resolve(queries, table, strategy)
	for _, q := range domain.UnmatchedQueries(results) {
		log.Info().Str("query", q).Str("strategy", string(strategy)).Msg("No matching hosts")
	}
	return &Resolution{Inventory: inv, Results: results}, nil
}
