package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/domain"
)

func host(t *testing.T, name, addr string) domain.HostRecord {
	t.Helper()
	h, err := domain.NewHostRecord(name, addr, domain.SourceCSV, nil)
	require.NoError(t, err)
	return h
}

var splitLayout = map[string][]domain.PaneAction{
	"split": {
		{Action: "split-window -h"},
		{Action: "split-window -v", Run: "htop"},
	},
	"solo": {{Action: "select-pane -t 0"}},
}

func TestPlanBastionWithLayout(t *testing.T) {
	results := []domain.MatchResult{{
		Query:    "web-01",
		Matches:  []domain.HostRecord{host(t, "web-01", "10.0.0.1")},
		Strategy: domain.StrategyPartial,
	}}

	plans, err := Plan(results, Options{
		Layout:  "split",
		Layouts: splitLayout,
		Bastion: &domain.Bastion{Address: "bastion.example.com", User: "jump"},
	})
	require.NoError(t, err)
	require.Len(t, plans, 1)

	p := plans[0]
	assert.Equal(t, domain.RouteViaBastion, p.Route.Kind)
	require.NotNil(t, p.Route.Bastion)
	assert.Equal(t, "jump@bastion.example.com", p.Route.Bastion.Destination())
	assert.Len(t, p.Panes, 2)
	assert.Nil(t, p.Mount)
	assert.Equal(t, "web-01-0", p.Title)
}

func TestPlanUnknownLayout(t *testing.T) {
	results := []domain.MatchResult{{Query: "web", Matches: []domain.HostRecord{host(t, "web-01", "10.0.0.1")}}}

	plans, err := Plan(results, Options{Layout: "ghost", Layouts: splitLayout})
	assert.Empty(t, plans)
	require.ErrorIs(t, err, domain.ErrUnknownLayout)

	var layoutErr *domain.LayoutError
	require.True(t, errors.As(err, &layoutErr))
	assert.Equal(t, "ghost", layoutErr.Name)
	assert.Equal(t, []string{"solo", "split"}, layoutErr.Available)
}

func TestPlanUnknownLayoutBeforeEmptySet(t *testing.T) {
	_, err := Plan([]domain.MatchResult{{Query: "nothing", Matches: []domain.HostRecord{}}}, Options{Layout: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnknownLayout)
}

func TestPlanEmptyMatchSet(t *testing.T) {
	results := []domain.MatchResult{
		{Query: "nope", Matches: []domain.HostRecord{}},
		{Query: "zilch", Matches: []domain.HostRecord{}},
	}

	plans, err := Plan(results, Options{})
	assert.Empty(t, plans)
	require.ErrorIs(t, err, domain.ErrEmptyMatchSet)

	var emptyErr *domain.EmptyMatchError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, []string{"nope", "zilch"}, emptyErr.Queries)
}

func TestPlanRoutes(t *testing.T) {
	bastion := &domain.Bastion{Address: "10.9.9.9"}
	results := []domain.MatchResult{{Query: "web", Matches: []domain.HostRecord{host(t, "web-01", "10.0.0.1")}}}

	tests := []struct {
		name    string
		opts    Options
		want    domain.RouteKind
		wantErr error
	}{
		{"no bastion configured", Options{}, domain.RouteDirect, nil},
		{"bastion configured", Options{Bastion: bastion}, domain.RouteViaBastion, nil},
		{"bastion bypassed", Options{Bastion: bastion, NoBastion: true}, domain.RouteDirect, nil},
		{"empty bastion address", Options{Bastion: &domain.Bastion{}}, domain.RouteDirect, nil},
		{"required and configured", Options{Bastion: bastion, RequireBastion: true}, domain.RouteViaBastion, nil},
		{"bypass conflicts with required", Options{Bastion: bastion, NoBastion: true, RequireBastion: true}, "", domain.ErrBastionConflict},
		{"required but missing", Options{RequireBastion: true}, "", domain.ErrBastionConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plans, err := Plan(results, tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, plans)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, plans[0].Route.Kind)
			assert.Equal(t, tt.want == domain.RouteViaBastion, plans[0].ViaBastion())
		})
	}
}

func TestPlanOrderFollowsQueriesThenMatches(t *testing.T) {
	web1, web2, db1 := host(t, "web-01", "10.0.0.1"), host(t, "web-02", "10.0.0.2"), host(t, "db-01", "10.0.1.1")
	results := []domain.MatchResult{
		{Query: "db", Matches: []domain.HostRecord{db1}},
		{Query: "web", Matches: []domain.HostRecord{web1, web2}},
		{Query: "01", Matches: []domain.HostRecord{web1, db1}},
	}

	plans, err := Plan(results, Options{})
	require.NoError(t, err)

	var got []string
	for _, p := range plans {
		got = append(got, p.Title)
	}
	assert.Equal(t, []string{"db-01-0", "web-01-1", "web-02-2"}, got)
}

func TestPlanMountAndLayoutCombine(t *testing.T) {
	results := []domain.MatchResult{{Query: "web", Matches: []domain.HostRecord{
		host(t, "web-01", "10.0.0.1"),
		host(t, "web/02", "10.0.0.2"),
	}}}

	plans, err := Plan(results, Options{
		Layout:      "split",
		Layouts:     splitLayout,
		Bastion:     &domain.Bastion{Address: "bastion"},
		MountPath:   "/var/log",
		MountRoot:   "/home/op/.hopper/mounts",
		PaneCommand: "tail -f syslog",
	})
	require.NoError(t, err)
	require.Len(t, plans, 2)

	for _, p := range plans {
		assert.True(t, p.ViaBastion())
		assert.Len(t, p.Panes, 2)
		assert.Equal(t, "tail -f syslog", p.PaneCommand)
		require.NotNil(t, p.Mount)
		assert.Equal(t, "/var/log", p.Mount.RemotePath)
	}
	assert.Equal(t, "/home/op/.hopper/mounts/web-01", plans[0].Mount.Mountpoint)
	assert.Equal(t, "/home/op/.hopper/mounts/web_02", plans[1].Mount.Mountpoint)
}

func TestPlanPanesAreCopied(t *testing.T) {
	layouts := map[string][]domain.PaneAction{"split": {{Action: "split-window -h"}}}
	results := []domain.MatchResult{{Query: "web", Matches: []domain.HostRecord{host(t, "web-01", "10.0.0.1")}}}

	plans, err := Plan(results, Options{Layout: "split", Layouts: layouts})
	require.NoError(t, err)

	plans[0].Panes[0].Action = "changed"
	assert.Equal(t, "split-window -h", layouts["split"][0].Action)
}

func TestPlanHosts(t *testing.T) {
	plans, err := PlanHosts([]domain.HostRecord{host(t, "db-01", "10.0.1.1")}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.RouteDirect, plans[0].Route.Kind)

	_, err = PlanHosts(nil, []string{"db"}, Options{})
	assert.ErrorIs(t, err, domain.ErrEmptyMatchSet)
}
