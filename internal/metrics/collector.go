package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitcoach/coach/internal/queue"
	"github.com/fitcoach/coach/internal/task"
)

const namespace = "coach"

// Collector records queue and generation metrics.
type Collector struct {
	registry *prometheus.Registry

	published     *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	settled       *prometheus.CounterVec

	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	inFlight           prometheus.Gauge
}

var (
	_ queue.Observer = (*Collector)(nil)
	_ task.Recorder  = (*Collector)(nil)
)

// NewCollector creates a Collector registered on a fresh registry that also
// carries the Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Total number of WOD requests published",
		}, []string{"queue"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total number of WOD requests that failed to publish",
		}, []string{"queue"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_settled_total",
			Help:      "Total number of consumed messages by settlement outcome",
		}, []string{"queue", "outcome"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of WOD generation attempts by outcome",
		}, []string{"outcome"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "WOD generation latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generations_in_flight",
			Help:      "Current number of WOD generations in progress",
		}),
	}

	c.registry.MustRegister(
		c.published,
		c.publishErrors,
		c.settled,
		c.generations,
		c.generationDuration,
		c.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry backing the Collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Published implements queue.Observer.
func (c *Collector) Published(q string) {
	c.published.WithLabelValues(q).Inc()
}

// PublishFailed implements queue.Observer.
func (c *Collector) PublishFailed(q string) {
	c.publishErrors.WithLabelValues(q).Inc()
}

// Settled implements queue.Observer.
func (c *Collector) Settled(q string, outcome queue.Outcome) {
	c.settled.WithLabelValues(q, string(outcome)).Inc()
}

// GenerationStarted implements task.Recorder.
func (c *Collector) GenerationStarted() {
	c.inFlight.Inc()
}

// GenerationFinished implements task.Recorder. Malformed messages never
// reach the generator, so they are counted without touching the in-flight
// gauge or the latency histogram.
func (c *Collector) GenerationFinished(outcome string, elapsed time.Duration) {
	c.generations.WithLabelValues(outcome).Inc()
	if outcome == task.OutcomeMalformed {
		return
	}
	c.inFlight.Dec()
	c.generationDuration.Observe(elapsed.Seconds())
}
