// Package prometheus renders goGuard metric snapshots in the Prometheus
// text exposition format (version 0.0.4).
//
// The exporter is pull based: nothing is pushed, no collectors are
// registered. Mount Handler on any mux and let the Prometheus server
// scrape it.
//
// # Architecture boundaries
//
// The exporter reads snapshots through a narrow source interface and
// never touches Redis or the event log. Rendering is allocation light
// and safe to call from multiple scrapers concurrently.
//
// # What this package must NOT do
//
//   - Mutate counters. Snapshots are read only.
//   - Expose per account or per address labels. Metric cardinality
//     stays fixed no matter the traffic.
package prometheus
