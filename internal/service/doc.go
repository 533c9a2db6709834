// Package service implements the inventory workflow behind every command.
//
// InventoryService owns the cache store and the source registry. It decides
// when to refresh, falls back to the cached snapshot when a refresh fails,
// and answers host queries by filtering and matching the current snapshot.
//
// # Refresh Policy
//
//   - forced refresh (update command, --update flag, inventory.update_at_start)
//     aggregates the sources first; if every source fails the cached snapshot
//     is used and the failure is reported on the result
//   - an empty or corrupt cache always triggers a refresh
//   - otherwise the cached snapshot is used as is
package service
