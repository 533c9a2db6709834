// Package domain defines the core types for hopper's inventory resolution engine.
//
// This package holds the records that flow from inventory sources through
// aggregation, filtering and matching into connection plans. It has no
// dependencies on storage, transport or process execution.
//
// # Inventory
//
// HostRecord is a single host as reported by one inventory source. Records are
// immutable once produced: sources build them, the aggregator merges them.
//
// InventorySnapshot is a timestamped, ordered set of records plus the list of
// sources that failed during the aggregation that produced it.
//
// # Resolution
//
// FilterRule narrows a snapshot by matching a regular expression against host
// names. MatchResult ties one operator query to the hosts it resolved to.
//
// # Sessions
//
// ConnectionPlan describes one remote session: the host, the route (direct or
// through a bastion), the expanded multiplexer panes and an optional filesystem
// mount. Plans are declarative; executing them is left to the session package.
//
// # Errors
//
// Error kinds are exposed as sentinel values so callers can use errors.Is.
// Source failures carry their source name in a SourceError.
package domain
