package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hopper/internal/adapter"
	"hopper/internal/domain"
	"hopper/internal/repository"
)

// Aggregation is the outcome of one aggregation run
type Aggregation struct {
	Snapshot *domain.InventorySnapshot
	// Skipped holds malformed upstream records per source name
	Skipped map[string][]adapter.Skipped
	// Stored reports whether the snapshot was written to the cache
	Stored bool
}

// Failures returns the sources that failed during the run
func (a *Aggregation) Failures() []domain.SourceFailure {
	if a == nil || a.Snapshot == nil {
		return nil
	}
	return a.Snapshot.Failures
}

// Aggregator merges source outcomes into snapshots and persists them
type Aggregator struct {
	store repository.SnapshotStore
	now   func() time.Time
	newID func() string
}

// NewAggregator creates an aggregator. store may be nil, in which case
// snapshots are never persisted.
func NewAggregator(store repository.SnapshotStore) *Aggregator {
	return &Aggregator{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Run fetches every source in reg, merges the results and stores the
// snapshot if at least one source succeeded.
func (a *Aggregator) Run(ctx context.Context, reg *adapter.Registry) (*Aggregation, error) {
	agg, err := a.Merge(reg.FetchAll(ctx))
	if err != nil {
		return agg, err
	}

	if a.store != nil {
		if err := a.store.Store(ctx, agg.Snapshot); err != nil {
			return agg, fmt.Errorf("store snapshot: %w", err)
		}
		agg.Stored = true
	}

	log.Info().
		Str("snapshot", agg.Snapshot.ID).
		Int("records", agg.Snapshot.Len()).
		Strs("failed", agg.Snapshot.FailedSources()).
		Msg("Inventory updated")
	return agg, nil
}

// Merge combines outcomes into a snapshot. It fails with
// domain.ErrAllSourcesFailed when no source succeeded; the returned
// aggregation still lists every failure.
func (a *Aggregator) Merge(outcomes []adapter.Outcome) (*Aggregation, error) {
	ordered := append([]adapter.Outcome(nil), outcomes...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	snap := &domain.InventorySnapshot{
		ID:        a.newID(),
		CreatedAt: a.now().UTC(),
	}
	agg := &Aggregation{Snapshot: snap, Skipped: make(map[string][]adapter.Skipped)}

	index := make(map[domain.RecordKey]int)
	var errs []error
	succeeded := 0

	for _, out := range ordered {
		if !out.OK() {
			errs = append(errs, out.Err)
			snap.Failures = append(snap.Failures, failureOf(out))
			continue
		}
		succeeded++
		if out.Batch == nil {
			continue
		}
		if len(out.Batch.Skipped) > 0 {
			agg.Skipped[out.Source] = out.Batch.Skipped
		}

		for _, rec := range out.Batch.Records {
			if err := rec.Validate(); err != nil {
				agg.Skipped[out.Source] = append(agg.Skipped[out.Source], adapter.Skipped{Ref: rec.Name, Reason: err.Error()})
				continue
			}
			key := rec.Key()
			if pos, dup := index[key]; dup {
				snap.Records[pos] = rec
				continue
			}
			index[key] = len(snap.Records)
			snap.Records = append(snap.Records, rec)
		}
	}

	if succeeded == 0 {
		if len(errs) == 0 {
			return agg, fmt.Errorf("%w: no sources registered", domain.ErrAllSourcesFailed)
		}
		return agg, fmt.Errorf("%w: %w", domain.ErrAllSourcesFailed, errors.Join(errs...))
	}
	return agg, nil
}

func failureOf(out adapter.Outcome) domain.SourceFailure {
	var srcErr *domain.SourceError
	if errors.As(out.Err, &srcErr) {
		return srcErr.Failure()
	}
	return domain.SourceFailure{Source: out.Source, Reason: out.Err.Error()}
}
