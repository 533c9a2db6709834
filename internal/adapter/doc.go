// Package adapter implements the inventory sources for hopper.
//
// Sources are pluggable fetchers that enumerate hosts from one external system
// and turn them into domain.HostRecord values. Each source registers with the
// Registry, which fans fetches out concurrently and collects their outcomes.
//
// # Source Kinds
//
// CSVSource reads a delimited file with a configurable column layout.
//
// AWSSource lists running EC2 instances through the AWS SDK.
//
// NewRelicSource queries the New Relic Insights API for reporting hosts.
//
// # Registry
//
// Registry keeps sources in priority order (registration order). FetchAll runs
// every source in its own goroutine under its own deadline and returns one
// Outcome per source in priority order. A failing, panicking or slow source
// is reported in its Outcome and never blocks or aborts the others.
//
// # Malformed Records
//
// Sources skip upstream records they cannot turn into a valid HostRecord and
// report them in Batch.Skipped instead of failing the whole fetch.
package adapter
