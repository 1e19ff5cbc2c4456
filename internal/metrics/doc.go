// Package metrics exports Prometheus counters for the WOD pipeline. A single
// Collector observes both the queue client and the task consumer and owns its
// own registry, so tests and multiple processes never collide on the default
// registerer.
package metrics
