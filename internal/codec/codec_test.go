package codec

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"hopper/internal/domain"
)

func testSnapshot(t *testing.T) *domain.InventorySnapshot {
	t.Helper()
	mk := func(name, addr string, kind domain.SourceKind, attrs map[string]string) domain.HostRecord {
		r, err := domain.NewHostRecord(name, addr, kind, attrs)
		require.NoError(t, err)
		return r
	}
	return &domain.InventorySnapshot{
		ID:        "snap-1",
		CreatedAt: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC),
		Records: []domain.HostRecord{
			mk("web-01", "10.0.0.1", domain.SourceCSV, map[string]string{"source_name": "csv", "aliases": "www1 front"}),
			mk("web-01", "10.0.0.9", domain.SourceCSV, map[string]string{"source_name": "csv"}),
			mk("db-01", "10.0.1.1", domain.SourceCloudProvider, map[string]string{"source_name": "prod-aws", "instance_id": "i-0abc"}),
			mk("api-01", "10.0.3.1", domain.SourceMonitoring, nil),
		},
		Failures: []domain.SourceFailure{{Source: "newrelic", Reason: "timeout"}},
	}
}

func TestForFormat(t *testing.T) {
	for _, name := range []string{"json", "YAML", "ansible", "ansible-inventory", " table "} {
		e, err := ForFormat(name)
		require.NoError(t, err, name)
		assert.NotNil(t, e)
	}

	_, err := ForFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ansible, json, table, yaml")
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONCodec().Export(testSnapshot(t), &buf))

	var got domain.InventorySnapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, testSnapshot(t).Records, got.Records)
	assert.Equal(t, "snap-1", got.ID)
	assert.Len(t, got.Failures, 1)
}

func TestJSONExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONCodec().Export(&domain.InventorySnapshot{ID: "empty"}, &buf))
	assert.Contains(t, buf.String(), `"records": []`)
}

func TestYAMLExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLCodec().Export(testSnapshot(t), &buf))

	var got yamlSnapshot
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "2026-05-06T07:08:09Z", got.CreatedAt)
	require.Len(t, got.Hosts, 4)
	assert.Equal(t, []string{"www1", "front"}, got.Hosts[0].Aliases)
	assert.NotContains(t, got.Hosts[0].Attributes, "aliases")
	assert.Equal(t, "cloud_provider", got.Hosts[2].Source)
}

func TestAnsibleExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewAnsibleCodec().Export(testSnapshot(t), &buf))

	var inv ansibleInventory
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &inv))

	require.Contains(t, inv.All.Children, "csv")
	require.Contains(t, inv.All.Children, "prod_aws")
	require.Contains(t, inv.All.Children, "monitoring")

	csv := inv.All.Children["csv"].Hosts
	assert.Equal(t, "10.0.0.1", csv["web-01"].AnsibleHost)
	assert.Equal(t, "10.0.0.9", csv["web-01_2"].AnsibleHost)
	assert.Equal(t, "www1 front", csv["web-01"].Vars["aliases"])

	db := inv.All.Children["prod_aws"].Hosts["db-01"]
	assert.Equal(t, "i-0abc", db.Vars["instance_id"])
	assert.NotContains(t, db.Vars, "source_name")
}

func TestGroupName(t *testing.T) {
	rec := domain.HostRecord{Name: "a", Address: "b", Source: domain.SourceCSV, Attributes: map[string]string{"source_name": "9lives"}}
	assert.Equal(t, "g_9lives", groupName(rec))
}

func TestTableExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableCodec().Export(testSnapshot(t), &buf))

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[0], "ALIASES")
	assert.Contains(t, out, "web-01")
	assert.Contains(t, out, "prod-aws")
	assert.Contains(t, out, "www1 front")
	assert.Contains(t, out, "monitoring")
}
