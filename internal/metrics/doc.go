// Package metrics exposes live engine and registry statistics as
// prometheus gauges.
//
// The collector reads counters the runtime already maintains for its
// own bookkeeping: inbox depth, pending outbox flushes, table sizes,
// open descriptor counts. Every source is a concurrency-safe accessor,
// so a scrape during an active pass is allowed and observes a momentary
// snapshot rather than a quiesced state.
//
// Runs are batch processes, so the CLI writes a textfile snapshot at
// the end of a run instead of serving an HTTP endpoint.
package metrics
