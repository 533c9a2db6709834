package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"hopper/internal/adapter"
	"hopper/internal/config"
	"hopper/internal/domain"
	"hopper/internal/logging"
	"hopper/internal/planner"
	"hopper/internal/repository/sqlite"
	"hopper/internal/selector"
	"hopper/internal/service"
	"hopper/internal/session"
)

type globalFlags struct {
	configPath string
	verbose    bool
	dryRun     bool
}

// app holds the state shared by every subcommand. The cache database is
// opened on first use so commands that do not need inventory never touch it.
type app struct {
	flags  globalFlags
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	cfgPath string
	store   *sqlite.Store
	svc     *service.InventoryService

	// interactive reports whether the picker may be shown
	interactive func() bool
	// pick asks the operator to choose among hosts, one unless multi is set
	pick func(title string, hosts []domain.HostRecord, multi bool) ([]domain.HostRecord, error)
	// runner builds the command runner for a session
	runner func(dryRun bool) *session.Runner
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{stdout: stdout, stderr: stderr}
	a.interactive = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	}
	a.pick = func(title string, hosts []domain.HostRecord, multi bool) ([]domain.HostRecord, error) {
		return selector.Run(title, hosts, multi, tea.WithOutput(os.Stderr))
	}
	a.runner = func(dryRun bool) *session.Runner {
		return session.NewRunner(dryRun, a.stdout)
	}
	return a
}

// init loads the config and sets up logging
func (a *app) init() error {
	if a.cfg != nil {
		return nil
	}

	cfg, path, err := loadConfig(a.flags.configPath)
	if err != nil {
		return err
	}
	a.cfg, a.cfgPath = cfg, path

	level := cfg.Log.Level
	if a.flags.verbose || a.flags.dryRun {
		level = "debug"
	}
	logging.Init(logging.Config{
		Format:    cfg.Log.Format,
		Level:     level,
		Component: "hopper",
		Output:    a.stderr,
	})
	if path != "" {
		log.Debug().Str("path", path).Msg("Loaded config")
	} else {
		log.Debug().Str("path", config.DefaultConfigPath()).Msg("No config file found, using defaults (hopper config init writes them)")
	}
	return nil
}

func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		return config.Load()
	}
	cfg, path, err := config.LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// inventory opens the cache and builds the inventory service
func (a *app) inventory() (*service.InventoryService, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	rule, err := a.cfg.FilterRule()
	if err != nil {
		return nil, err
	}
	registry, err := adapter.NewRegistryFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}

	store, reset, err := sqlite.OpenOrReset(a.cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("open inventory cache: %w", err)
	}
	if reset {
		log.Warn().Str("path", a.cfg.Cache.Path).Msg("Inventory cache was unreadable and has been recreated")
	}
	a.store = store

	a.svc = service.NewInventoryService(store, registry, service.Options{
		Rule:          rule,
		Fuzzy:         a.cfg.Inventory.FuzzySearch,
		UpdateAtStart: a.cfg.Inventory.UpdateAtStart,
	})
	return a.svc, nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close inventory cache")
	}
}

func (a *app) sshOptions() session.SSHOptions {
	return session.SSHOptions{User: a.cfg.SSH.User, Options: a.cfg.SSH.Options}
}

func (a *app) mounter(runner *session.Runner) *session.Mounter {
	return session.NewMounter(runner, a.sshOptions(), session.SSHFSOptions{
		Options:   a.cfg.SSHFS.Options,
		MountRoot: a.cfg.SSHFS.MountRoot,
	})
}

// plannerOptions fills the config driven planner settings
func (a *app) plannerOptions() planner.Options {
	layouts := make(map[string][]domain.PaneAction)
	for name, layout := range a.cfg.Layouts() {
		layouts[name] = layout.Panes
	}
	opts := planner.Options{
		Layouts:   layouts,
		Bastion:   a.cfg.BastionHost(),
		MountRoot: a.cfg.SSHFS.MountRoot,
	}
	if a.cfg.Bastion != nil {
		opts.RequireBastion = a.cfg.Bastion.Required
	}
	return opts
}

// reportInventory notes a cached inventory's age and warns about sources that
// did not contribute to inv
func reportInventory(inv *service.Inventory) {
	age := inv.Snapshot.Age(time.Now()).Round(time.Second).String()
	switch {
	case inv.RefreshErr != nil:
		log.Warn().Err(inv.RefreshErr).Str("age", age).Msg("Inventory refresh failed, results come from the cache")
	case !inv.Refreshed:
		log.Info().Str("age", age).Str("snapshot", inv.Snapshot.ID).Msg("Using cached inventory")
	}
	for _, f := range inv.Snapshot.Failures {
		log.Warn().Str("source", f.Source).Str("reason", f.Reason).Msg("Inventory source failed")
	}
}

// choose narrows hosts to the operator's choice when several match. Without
// multi the picker allows a single host.
func (a *app) choose(hosts []domain.HostRecord, all, multi bool) ([]domain.HostRecord, error) {
	if len(hosts) <= 1 || all || !a.interactive() {
		return hosts, nil
	}
	title := "Select hosts"
	if !multi {
		title = "Select a host"
	}
	chosen, err := a.pick(title, hosts, multi)
	if err != nil {
		return nil, err
	}
	if len(chosen) == 0 {
		return nil, selector.ErrCancelled
	}
	return chosen, nil
}

// describe renders err for the operator
func describe(err error) string {
	var layoutErr *domain.LayoutError
	switch {
	case errors.As(err, &layoutErr):
		return layoutErr.Error()
	case errors.Is(err, domain.ErrEmptyMatchSet):
		return err.Error()
	case errors.Is(err, domain.ErrAllSourcesFailed):
		return "every inventory source failed: " + err.Error()
	case errors.Is(err, domain.ErrConfigurationConflict):
		return "invalid configuration: " + err.Error()
	case errors.Is(err, selector.ErrCancelled):
		return "cancelled"
	}
	return err.Error()
}
