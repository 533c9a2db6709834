// Package planner turns resolved hosts and session options into connection
// plans for the session runner.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"hopper/internal/domain"
)

// Options are the per-invocation session choices
type Options struct {
	// Layout names an entry of Layouts; empty means a single pane per host
	Layout  string
	Layouts map[string][]domain.PaneAction

	// Bastion is the configured relay, nil when none is configured
	Bastion        *domain.Bastion
	NoBastion      bool
	RequireBastion bool

	// MountPath requests a remote directory mount on every host
	MountPath string
	MountRoot string

	// PaneCommand runs in every host's primary pane
	PaneCommand string
}

// Plan resolves the hosts of results and builds one plan per host in query
// then match order. It fails without producing plans on a bastion conflict,
// an unknown layout or an empty host set.
func Plan(results []domain.MatchResult, opts Options) ([]domain.ConnectionPlan, error) {
	var queries []string
	for _, r := range results {
		queries = append(queries, r.Query)
	}
	return PlanHosts(domain.Hosts(results), queries, opts)
}

// PlanHosts builds plans for an already selected host list. queries is only
// used to report an empty selection.
func PlanHosts(hosts []domain.HostRecord, queries []string, opts Options) ([]domain.ConnectionPlan, error) {
	route, err := resolveRoute(opts)
	if err != nil {
		return nil, err
	}

	panes, err := expandLayout(opts.Layout, opts.Layouts)
	if err != nil {
		return nil, err
	}

	if len(hosts) == 0 {
		return nil, &domain.EmptyMatchError{Queries: queries}
	}

	mountPath := strings.TrimSpace(opts.MountPath)
	plans := make([]domain.ConnectionPlan, 0, len(hosts))
	for i, host := range hosts {
		p := domain.ConnectionPlan{
			Host:        host,
			Title:       fmt.Sprintf("%s-%d", host.Name, i),
			Route:       route,
			Panes:       panes,
			PaneCommand: opts.PaneCommand,
		}
		if mountPath != "" {
			p.Mount = &domain.MountSpec{
				RemotePath: mountPath,
				Mountpoint: domain.MountpointFor(opts.MountRoot, host.Name),
			}
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func resolveRoute(opts Options) (domain.Route, error) {
	if opts.NoBastion && opts.RequireBastion {
		return domain.Route{}, fmt.Errorf("%w: bastion bypass requested while a bastion is required", domain.ErrBastionConflict)
	}

	configured := opts.Bastion != nil && strings.TrimSpace(opts.Bastion.Address) != ""
	if opts.RequireBastion && !configured {
		return domain.Route{}, fmt.Errorf("%w: bastion required but none is configured", domain.ErrBastionConflict)
	}
	if configured && !opts.NoBastion {
		return domain.ViaBastion(*opts.Bastion), nil
	}
	return domain.DirectRoute(), nil
}

func expandLayout(name string, layouts map[string][]domain.PaneAction) ([]domain.PaneAction, error) {
	if name == "" {
		return nil, nil
	}
	actions, ok := layouts[name]
	if !ok {
		available := make([]string, 0, len(layouts))
		for n := range layouts {
			available = append(available, n)
		}
		sort.Strings(available)
		return nil, &domain.LayoutError{Name: name, Available: available}
	}
	return append([]domain.PaneAction(nil), actions...), nil
}
