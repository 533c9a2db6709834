package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hopper/internal/domain"
)

// DefaultTimeout bounds a fetch when a source is registered without one
const DefaultTimeout = 30 * time.Second

// Outcome is the result of fetching one source
type Outcome struct {
	Source   string
	Kind     domain.SourceKind
	Priority int
	Batch    *Batch
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the fetch succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

type entry struct {
	source  Source
	timeout time.Duration
}

// Registry manages the registered sources in priority order
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	names   map[string]struct{}
}

// NewRegistry creates an empty source registry
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register appends a source. Later registrations have higher priority.
func (r *Registry) Register(src Source, timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := src.Name()
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("source %s already registered", name)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r.entries = append(r.entries, entry{source: src, timeout: timeout})
	r.names[name] = struct{}{}
	log.Debug().
		Str("source", name).
		Str("kind", string(src.Kind())).
		Int("priority", len(r.entries)-1).
		Dur("timeout", timeout).
		Msg("Registered inventory source")
	return nil
}

// Len returns the number of registered sources
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns information about registered sources in priority order
func (r *Registry) List() []SourceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SourceInfo, 0, len(r.entries))
	for i, e := range r.entries {
		infos = append(infos, SourceInfo{
			Name:     e.source.Name(),
			Kind:     e.source.Kind(),
			Priority: i,
			Timeout:  e.timeout,
		})
	}
	return infos
}

// SourceInfo provides read-only information about a source
type SourceInfo struct {
	Name     string            `json:"name"`
	Kind     domain.SourceKind `json:"kind"`
	Priority int               `json:"priority"`
	Timeout  time.Duration     `json:"timeout"`
}

// FetchAll fetches every source concurrently and waits for all of them or
// their deadlines. Outcomes are returned in priority order.
func (r *Registry) FetchAll(ctx context.Context) []Outcome {
	r.mu.RLock()
	entries := append([]entry(nil), r.entries...)
	r.mu.RUnlock()

	outcomes := make([]Outcome, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			outcomes[i] = r.fetchOne(ctx, i, e)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// fetchOne runs a single fetch under its deadline. The fetch runs in its own
// goroutine so a source that ignores ctx still cannot stall the caller.
func (r *Registry) fetchOne(parent context.Context, priority int, e entry) Outcome {
	name := e.source.Name()
	out := Outcome{Source: name, Kind: e.source.Kind(), Priority: priority}

	ctx, cancel := context.WithTimeout(parent, e.timeout)
	defer cancel()

	type result struct {
		batch *Batch
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("source panicked: %v", p)}
			}
		}()
		batch, err := e.source.Fetch(ctx)
		done <- result{batch: batch, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("fetch abandoned after %s: %w", e.timeout, ctx.Err())
	}
	out.Elapsed = time.Since(start)

	if res.err == nil && res.batch == nil {
		res.batch = &Batch{}
	}
	if res.err != nil {
		out.Err = &domain.SourceError{Source: name, Kind: out.Kind, Err: res.err}
		log.Warn().Err(res.err).Str("source", name).Dur("elapsed", out.Elapsed).Msg("Inventory source failed")
		return out
	}

	out.Batch = res.batch
	for _, s := range res.batch.Skipped {
		log.Warn().Str("source", name).Str("ref", s.Ref).Str("reason", s.Reason).Msg("Skipped malformed record")
	}
	log.Debug().
		Str("source", name).
		Int("records", len(res.batch.Records)).
		Int("skipped", len(res.batch.Skipped)).
		Dur("elapsed", out.Elapsed).
		Msg("Inventory source fetched")
	return out
}
