package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"hopper/internal/domain"
)

// DefaultNewRelicEndpoint is the Insights query API base URL
const DefaultNewRelicEndpoint = "https://insights-api.newrelic.com"

var nrqlAttribute = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

// NewRelicConfig holds configuration for a New Relic source
type NewRelicConfig struct {
	Name          string
	AccountNumber string
	QueryKey      string
	// AddressField is the NetworkSample attribute used as address
	AddressField string
	Endpoint     string
	HTTPClient   *http.Client
}

// NewRelicSource lists hosts reporting to New Relic infrastructure monitoring
type NewRelicSource struct {
	name         string
	account      string
	queryKey     string
	addressField string
	endpoint     string
	client       *http.Client
}

// NewNewRelicSource creates a New Relic source
func NewNewRelicSource(cfg NewRelicConfig) (*NewRelicSource, error) {
	if cfg.Name == "" {
		cfg.Name = "newrelic"
	}
	if cfg.AccountNumber == "" || cfg.QueryKey == "" {
		return nil, fmt.Errorf("newrelic source %s: account number and query key are required", cfg.Name)
	}
	if _, err := strconv.ParseUint(cfg.AccountNumber, 10, 64); err != nil {
		return nil, fmt.Errorf("newrelic source %s: account number %q is not numeric", cfg.Name, cfg.AccountNumber)
	}
	if cfg.AddressField == "" {
		cfg.AddressField = "ipV4Address"
	}
	if !nrqlAttribute.MatchString(cfg.AddressField) {
		return nil, fmt.Errorf("newrelic source %s: invalid address_field %q", cfg.Name, cfg.AddressField)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultNewRelicEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &NewRelicSource{
		name:         cfg.Name,
		account:      cfg.AccountNumber,
		queryKey:     cfg.QueryKey,
		addressField: cfg.AddressField,
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		client:       cfg.HTTPClient,
	}, nil
}

// Name returns the source identifier
func (s *NewRelicSource) Name() string {
	return s.name
}

// Kind returns the source kind
func (s *NewRelicSource) Kind() domain.SourceKind {
	return domain.SourceMonitoring
}

// Query returns the NRQL statement sent to Insights
func (s *NewRelicSource) Query() string {
	return fmt.Sprintf("SELECT latest(%s) FROM NetworkSample FACET hostname SINCE 1 day ago LIMIT MAX", s.addressField)
}

type insightsResponse struct {
	Facets []json.RawMessage `json:"facets"`
}

type insightsFacet struct {
	Name    string `json:"name"`
	Results []struct {
		Latest *string `json:"latest"`
	} `json:"results"`
}

// Fetch runs the facet query and converts each facet into a host
func (s *NewRelicSource) Fetch(ctx context.Context) (*Batch, error) {
	u := fmt.Sprintf("%s/v1/accounts/%s/query?nrql=%s", s.endpoint, s.account, url.QueryEscape(s.Query()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Query-Key", s.queryKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("query insights: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload insightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode insights response: %w", err)
	}

	batch := &Batch{}
	for i, raw := range payload.Facets {
		ref := fmt.Sprintf("facet %d", i)
		var facet insightsFacet
		if err := json.Unmarshal(raw, &facet); err != nil {
			batch.skip(ref, fmt.Sprintf("malformed facet: %v", err))
			continue
		}
		if facet.Name != "" {
			ref = facet.Name
		}

		var address string
		if len(facet.Results) > 0 && facet.Results[0].Latest != nil {
			address = *facet.Results[0].Latest
		}
		batch.add(ref, facet.Name, address, domain.SourceMonitoring, map[string]string{
			domain.AttrSourceName: s.name,
		})
	}
	return batch, nil
}
