package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/domain"
)

const sampleConfig = `
inventory:
  fuzzy_search: true
  update_at_start: true
  timeout: 5s
  exclude_pattern: "^test-"
  sources:
    - type: csv
      name: office
      file: /tmp/office.csv
      fields: name,address,aliases
    - type: aws
      region: eu-west-1
      timeout: 2s
    - type: newrelic
      name: nr
      account_number: "123"
      insights_query_api_key: key
ssh:
  user: ops
  options: -C
bastion:
  address: jump.example.com
  user: admin
tmux:
  layout:
    split:
      - cmd: split-window -h
      - cmd: split-window -v
        run: htop
sshfs:
  mount_root: /tmp/mounts
cache:
  path: /tmp/hopper.db
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Inventory.FuzzySearch)
	assert.True(t, cfg.Inventory.UpdateAtStart)
	assert.Equal(t, 5*time.Second, cfg.Inventory.Timeout.Duration())
	assert.Equal(t, "/tmp/hopper.db", cfg.Cache.Path)
	assert.Equal(t, "/tmp/mounts", cfg.SSHFS.MountRoot)

	sources := cfg.EffectiveSources()
	require.Len(t, sources, 3)
	assert.Equal(t, "office", sources[0].Name)
	assert.Equal(t, "aws-1", sources[1].Name)
	assert.Equal(t, "nr", sources[2].Name)

	assert.Equal(t, 5*time.Second, cfg.SourceTimeout(sources[0]))
	assert.Equal(t, 2*time.Second, cfg.SourceTimeout(sources[1]))

	layouts := cfg.Layouts()
	require.Contains(t, layouts, "split")
	assert.Equal(t, []domain.PaneAction{
		{Action: "split-window -h"},
		{Action: "split-window -v", Run: "htop"},
	}, layouts["split"].Panes)

	bastion := cfg.BastionHost()
	require.NotNil(t, bastion)
	assert.Equal(t, "admin@jump.example.com", bastion.Destination())

	rule, err := cfg.FilterRule()
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, domain.FilterExclude, rule.Mode)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	sources := cfg.EffectiveSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "csv", sources[0].Type)
	assert.Equal(t, "name,address", sources[0].Fields)
	assert.Equal(t, DefaultSourceTimeout, cfg.Inventory.Timeout.Duration())
	assert.NotEmpty(t, cfg.Cache.Path)
	assert.NotEmpty(t, cfg.SSHFS.MountRoot)

	rule, err := cfg.FilterRule()
	assert.NoError(t, err)
	assert.Nil(t, rule)
	assert.Nil(t, cfg.BastionHost())
}

func TestSingleSourceShorthand(t *testing.T) {
	cfg, err := Parse([]byte(`
inventory:
  source: newrelic
newrelic:
  account_number: "42"
  insights_query_api_key: abc
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	sources := cfg.EffectiveSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "newrelic", sources[0].Name)
	assert.Equal(t, "42", sources[0].AccountNumber)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		yaml       string
		wantErr    bool
		isConflict bool
	}{
		{
			name: "include and exclude together",
			yaml: `
inventory:
  include_pattern: web
  exclude_pattern: db
`,
			wantErr:    true,
			isConflict: true,
		},
		{
			name: "invalid regex",
			yaml: `
inventory:
  include_pattern: "("
`,
			wantErr: true,
		},
		{
			name: "unknown source type",
			yaml: `
inventory:
  source: ldap
`,
			wantErr: true,
		},
		{
			name: "duplicate source names",
			yaml: `
inventory:
  sources:
    - {type: csv, name: a, file: /x.csv}
    - {type: csv, name: a, file: /y.csv}
`,
			wantErr: true,
		},
		{
			name: "newrelic without key",
			yaml: `
inventory:
  source: newrelic
`,
			wantErr: true,
		},
		{
			name: "empty layout",
			yaml: `
tmux:
  layout:
    empty: []
`,
			wantErr: true,
		},
		{
			name: "required bastion without address",
			yaml: `
bastion:
  required: true
`,
			wantErr:    true,
			isConflict: true,
		},
		{
			name: "run task without playbooks",
			yaml: `
run:
  deploy: []
`,
			wantErr: true,
		},
		{
			name: "include only",
			yaml: `
inventory:
  include_pattern: "^web"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			err = cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.isConflict, errors.Is(err, domain.ErrConfigurationConflict))
		})
	}
}

func TestParseRejectsDuplicateLayoutNames(t *testing.T) {
	_, err := Parse([]byte(`
tmux:
  layout:
    split:
      - cmd: split-window -h
    split:
      - cmd: split-window -v
`))
	assert.Error(t, err)
}

func TestLoadFromPathAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Save(path))

	loaded, gotPath, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, gotPath)
	assert.Equal(t, cfg.Inventory.Timeout, loaded.Inventory.Timeout)
	assert.Equal(t, cfg.Tmux.Layout, loaded.Tmux.Layout)
	assert.Equal(t, cfg.EffectiveSources(), loaded.EffectiveSources())

	_, _, err = LoadFromPath(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadUsesEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inventory:\n  fuzzy_search: true\n"), 0600))

	t.Setenv(EnvConfigPath, path)
	t.Setenv("HOPPER_LOG_LEVEL", "debug")
	t.Setenv("HOPPER_UPDATE_AT_START", "true")

	cfg, gotPath, err := Load()
	require.NoError(t, err)
	assert.Equal(t, path, gotPath)
	assert.True(t, cfg.Inventory.FuzzySearch)
	assert.True(t, cfg.Inventory.UpdateAtStart)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvLeavesUnsetValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inventory.FuzzySearch = true
	t.Setenv("HOPPER_CACHE_PATH", "/var/tmp/h.db")

	require.NoError(t, cfg.ApplyEnv())
	assert.True(t, cfg.Inventory.FuzzySearch)
	assert.Equal(t, "/var/tmp/h.db", cfg.Cache.Path)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/ops")
	assert.Equal(t, "/home/ops/x", ExpandHome("~/x"))
	assert.Equal(t, "/home/ops", ExpandHome("~"))
	assert.Equal(t, "/abs", ExpandHome("/abs"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestDefaultCachePath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", ConfigDirName, CacheFileName), DefaultCachePath())
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", ConfigDirName, "config.yaml"), DefaultConfigPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/ops")
	assert.Equal(t, filepath.Join("/home/ops", ".config", ConfigDirName, "config.yaml"), DefaultConfigPath())
}

func TestRunTasks(t *testing.T) {
	t.Setenv("HOME", "/home/ops")
	cfg, err := Parse([]byte(`
run:
  patch: [~/play/patch.yml]
  deploy: [site.yml, verify.yml]
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"deploy", "patch"}, cfg.TaskNames())

	playbooks, err := cfg.Playbooks("patch")
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/ops/play/patch.yml"}, playbooks)

	_, err = cfg.Playbooks("reboot")
	assert.ErrorContains(t, err, `run task "reboot" is not configured (available: deploy, patch)`)

	_, err = DefaultConfig().Playbooks("deploy")
	assert.ErrorContains(t, err, "none configured")
}

func TestSummary(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig + "run:\n  deploy: [site.yml]\n"))
	require.NoError(t, err)

	summary := cfg.Summary()
	assert.Contains(t, summary, "Sources: office(csv), aws-1(aws), nr(newrelic)")
	assert.Contains(t, summary, "Fuzzy: true, Update at start: true, Timeout: 5s")
	assert.Contains(t, summary, "Bastion: admin@jump.example.com")
	assert.Contains(t, summary, "Cache: /tmp/hopper.db")
	assert.Contains(t, summary, "Layouts (1): split")
	assert.Contains(t, summary, "Run tasks (1): deploy")
}
