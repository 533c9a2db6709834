package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/domain"
)

func TestNewRelicSourceFetch(t *testing.T) {
	var gotPath, gotKey, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Query-Key")
		gotQuery = r.URL.Query().Get("nrql")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"facets":[
			{"name":"web-01","results":[{"latest":"10.0.0.1"}]},
			{"name":["not","a","string"],"results":[]},
			{"name":"db-01","results":[{"latest":null}]},
			{"name":"cache-01","results":[{"latest":"10.0.2.1"}]}
		]}`))
	}))
	defer server.Close()

	src, err := NewNewRelicSource(NewRelicConfig{AccountNumber: "1234", QueryKey: "secret", Endpoint: server.URL + "/"})
	require.NoError(t, err)

	batch, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/v1/accounts/1234/query", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, src.Query(), gotQuery)

	require.Len(t, batch.Records, 2)
	assert.Equal(t, "web-01", batch.Records[0].Name)
	assert.Equal(t, "cache-01", batch.Records[1].Name)
	assert.Equal(t, domain.SourceMonitoring, batch.Records[1].Source)

	require.Len(t, batch.Skipped, 2)
	assert.Equal(t, "facet 1", batch.Skipped[0].Ref)
	assert.Equal(t, "db-01", batch.Skipped[1].Ref)
}

func TestNewRelicSourceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusForbidden)
	}))
	defer server.Close()

	src, err := NewNewRelicSource(NewRelicConfig{AccountNumber: "1", QueryKey: "bad", Endpoint: server.URL})
	require.NoError(t, err)

	_, err = src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid key")
}

func TestNewNewRelicSourceValidation(t *testing.T) {
	_, err := NewNewRelicSource(NewRelicConfig{QueryKey: "k"})
	assert.Error(t, err)

	_, err = NewNewRelicSource(NewRelicConfig{AccountNumber: "abc", QueryKey: "k"})
	assert.Error(t, err)

	_, err = NewNewRelicSource(NewRelicConfig{AccountNumber: "1", QueryKey: "k", AddressField: "x) FROM y"})
	assert.Error(t, err)
}
