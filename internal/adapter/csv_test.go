package adapter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/domain"
)

func TestNewCSVSourceValidatesFields(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CSVConfig
		wantErr bool
	}{
		{"defaults", CSVConfig{}, false},
		{"custom layout", CSVConfig{Fields: "address, name ,aliases"}, false},
		{"missing address", CSVConfig{Fields: "name,aliases"}, true},
		{"multi-char delimiter", CSVConfig{Delimiter: "::"}, true},
		{"quote delimiter", CSVConfig{Delimiter: `"`}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVSource(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCSVSourceParse(t *testing.T) {
	src, err := NewCSVSource(CSVConfig{Name: "office", Path: "hosts.csv", Fields: "name,address,aliases", Delimiter: ";"})
	require.NoError(t, err)

	input := strings.Join([]string{
		"# inventory",
		"web-01;10.0.0.1;www frontend",
		"web-02; 10.0.0.2;",
		"broken-row",
		";10.0.0.9;nameless",
		"db-01;10.0.1.1;primary;extra-column",
	}, "\n")

	batch, err := src.parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, batch.Records, 3)
	assert.Equal(t, "web-01", batch.Records[0].Name)
	assert.Equal(t, []string{"www", "frontend"}, batch.Records[0].Aliases())
	assert.Equal(t, "10.0.0.2", batch.Records[1].Address)
	assert.Empty(t, batch.Records[1].Attr(domain.AttrAliases))
	assert.Equal(t, "db-01", batch.Records[2].Name)
	assert.Equal(t, "office", batch.Records[2].Attr(domain.AttrSourceName))
	for _, rec := range batch.Records {
		assert.Equal(t, domain.SourceCSV, rec.Source)
	}

	require.Len(t, batch.Skipped, 2)
	assert.Equal(t, "hosts.csv:4", batch.Skipped[0].Ref)
	assert.Contains(t, batch.Skipped[1].Reason, "empty name")
}

func TestCSVSourceFetchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte("alpha,192.168.1.10\nbeta,192.168.1.11\n"), 0600))

	src, err := NewCSVSource(CSVConfig{Path: path})
	require.NoError(t, err)

	batch, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, "beta", batch.Records[1].Name)
}

func TestCSVSourceMissingFile(t *testing.T) {
	src, err := NewCSVSource(CSVConfig{Path: filepath.Join(t.TempDir(), "nope.csv")})
	require.NoError(t, err)

	_, err = src.Fetch(context.Background())
	assert.Error(t, err)
}

func TestCSVSourceHonorsCancellation(t *testing.T) {
	src, err := NewCSVSource(CSVConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.parse(ctx, strings.NewReader("a,1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
