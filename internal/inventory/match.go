package inventory

import (
	"sort"
	"strings"

	"hopper/internal/domain"
)

// StrategyFor returns the interactive matching strategy for the fuzzy setting
func StrategyFor(fuzzy bool) domain.Strategy {
	if fuzzy {
		return domain.StrategyFuzzy
	}
	return domain.StrategyPartial
}

// Resolve matches each query against table and returns one result per query
// in query order. A query with no hosts yields an empty result.
func Resolve(queries []string, table []domain.HostRecord, strategy domain.Strategy) []domain.MatchResult {
	results := make([]domain.MatchResult, 0, len(queries))
	for _, q := range queries {
		var matches []domain.HostRecord
		switch strategy {
		case domain.StrategyExact:
			matches = matchExact(q, table)
		case domain.StrategyFuzzy:
			matches = matchFuzzy(q, table)
		default:
			strategy = domain.StrategyPartial
			matches = matchPartial(q, table)
		}
		results = append(results, domain.MatchResult{
			Query:    q,
			Matches:  dedupe(matches),
			Strategy: strategy,
		})
	}
	return results
}

func matchExact(q string, table []domain.HostRecord) []domain.HostRecord {
	var out []domain.HostRecord
	for _, rec := range table {
		if rec.Name == q {
			out = append(out, rec)
		}
	}
	return out
}

func matchPartial(q string, table []domain.HostRecord) []domain.HostRecord {
	needle := strings.ToLower(q)
	var out []domain.HostRecord
	for _, rec := range table {
		if strings.Contains(strings.ToLower(rec.Name), needle) {
			out = append(out, rec)
		}
	}
	return out
}

type scored struct {
	rec  domain.HostRecord
	dist int
}

func matchFuzzy(q string, table []domain.HostRecord) []domain.HostRecord {
	pattern := []rune(strings.ToLower(q))
	limit := MaxFuzzyDistance(len(pattern))

	var candidates []scored
	for _, rec := range table {
		d := SubstringDistance(pattern, []rune(strings.ToLower(rec.Name)))
		if d <= limit {
			candidates = append(candidates, scored{rec: rec, dist: d})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].rec.Name < candidates[j].rec.Name
	})

	out := make([]domain.HostRecord, len(candidates))
	for i, c := range candidates {
		out[i] = c.rec
	}
	return out
}

// MaxFuzzyDistance is the edit budget for a query of n runes
func MaxFuzzyDistance(n int) int {
	return n / 3
}

// SubstringDistance returns the minimum Levenshtein distance between pattern
// and any substring of text. Zero means text contains pattern.
func SubstringDistance(pattern, text []rune) int {
	m := len(pattern)
	if m == 0 {
		return 0
	}

	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for i := range prev {
		prev[i] = i
	}
	best := prev[m]

	for j := 1; j <= len(text); j++ {
		cur[0] = 0
		for i := 1; i <= m; i++ {
			cost := 1
			if pattern[i-1] == text[j-1] {
				cost = 0
			}
			cur[i] = min(prev[i-1]+cost, prev[i]+1, cur[i-1]+1)
		}
		if cur[m] < best {
			best = cur[m]
		}
		prev, cur = cur, prev
	}
	return best
}

func dedupe(records []domain.HostRecord) []domain.HostRecord {
	if len(records) == 0 {
		return []domain.HostRecord{}
	}
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, rec := range records {
		if _, ok := seen[rec.MatchKey()]; ok {
			continue
		}
		seen[rec.MatchKey()] = struct{}{}
		out = append(out, rec)
	}
	return out
}
