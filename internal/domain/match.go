package domain

import (
	"fmt"
	"regexp"
)

// FilterMode selects whether a rule keeps or drops matching records
type FilterMode string

const (
	FilterInclude FilterMode = "include"
	FilterExclude FilterMode = "exclude"
)

// FilterRule applies a regular expression to host names
type FilterRule struct {
	Pattern *regexp.Regexp
	Mode    FilterMode
}

// NewFilterRule compiles pattern into a rule for the given mode
func NewFilterRule(pattern string, mode FilterMode) (*FilterRule, error) {
	if mode != FilterInclude && mode != FilterExclude {
		return nil, fmt.Errorf("invalid filter mode %q", mode)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile %s pattern: %w", mode, err)
	}
	return &FilterRule{Pattern: re, Mode: mode}, nil
}

// Keep reports whether rec survives the rule
func (r *FilterRule) Keep(rec HostRecord) bool {
	matched := r.Pattern.MatchString(rec.Name)
	if r.Mode == FilterExclude {
		return !matched
	}
	return matched
}

// Strategy is the matching strategy applied to a query
type Strategy string

const (
	StrategyExact   Strategy = "exact"
	StrategyPartial Strategy = "partial"
	StrategyFuzzy   Strategy = "fuzzy"
)

// MatchResult ties one query to the hosts it resolved to
type MatchResult struct {
	Query    string       `json:"query"`
	Matches  []HostRecord `json:"matches"`
	Strategy Strategy     `json:"strategy"`
}

// Empty reports whether the query matched nothing
func (m MatchResult) Empty() bool {
	return len(m.Matches) == 0
}

// Hosts flattens match results into query order then match order,
// dropping hosts already seen under an earlier query.
func Hosts(results []MatchResult) []HostRecord {
	seen := make(map[string]struct{})
	var hosts []HostRecord
	for _, res := range results {
		for _, h := range res.Matches {
			if _, ok := seen[h.MatchKey()]; ok {
				continue
			}
			seen[h.MatchKey()] = struct{}{}
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// UnmatchedQueries returns the queries that produced no hosts
func UnmatchedQueries(results []MatchResult) []string {
	var out []string
	for _, res := range results {
		if res.Empty() {
			out = append(out, res.Query)
		}
	}
	return out
}
