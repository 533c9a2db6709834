// Package inventory turns source outcomes into snapshots and resolves operator
// queries against them.
//
// # Aggregation
//
// Aggregator merges the outcomes of every registered source into one
// InventorySnapshot. Outcomes are merged in priority order; when two records
// share (name, address, source) the later one replaces the earlier in place.
// Failed sources are recorded on the snapshot. A snapshot is persisted only
// when at least one source succeeded.
//
// # Filtering
//
// Filter applies the single configured include or exclude rule to host names.
//
// # Matching
//
// Resolve answers each query with one MatchResult, in query order:
//
//   - exact: name equals the query
//   - partial: name contains the query, case-insensitively
//   - fuzzy: the best alignment of the query inside the name is within
//     len(query)/3 edits, case-insensitively
//
// Partial and exact matches keep table order. Fuzzy matches are ordered by
// edit distance, then name, then table order, which follows source priority.
package inventory
