// Package metrics exposes gateway, processor and broadcaster metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidbz/ttibu/internal/domain"
)

// Config contains metric naming settings.
type Config struct {
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"ttibu"`
}

// Collector implements domain.PipelineMetrics and broadcast.Metrics.
//
// Metrics:
//   - stream_events_total: normalized events by provider and kind
//   - upstream_errors_total: upstream failures by provider and error kind
//   - stream_duration_seconds: time from stream open to close
//   - chat_attempts_total: processor attempts by outcome
//   - chat_retries_total: processor retries
//   - session_subscribers: live session subscribers
//   - session_events_published_total: events delivered to subscribers by type
//   - session_events_dropped_total: events not delivered by reason
type Collector struct {
	registry  *prometheus.Registry
	namespace string

	streamEvents   *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
	streamDuration *prometheus.HistogramVec
	attempts       *prometheus.CounterVec
	retries        prometheus.Counter
	subscribers    prometheus.Gauge
	published      *prometheus.CounterVec
	dropped        *prometheus.CounterVec
}

// NewCollector creates and registers the metrics on a private registry.
func NewCollector(cfg *Config) *Collector {
	ns := cfg.Namespace
	if ns == "" {
		ns = "ttibu"
	}

	c := &Collector{
		registry:  prometheus.NewRegistry(),
		namespace: ns,

		streamEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "gateway",
				Name:      "stream_events_total",
				Help:      "Normalized stream events emitted by provider and kind",
			},
			[]string{"provider", "kind"},
		),

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "gateway",
				Name:      "upstream_errors_total",
				Help:      "Upstream failures by provider and error kind",
			},
			[]string{"provider", "error_type"},
		),

		streamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "gateway",
				Name:      "stream_duration_seconds",
				Help:      "Duration of upstream streams in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),

		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "processor",
				Name:      "chat_attempts_total",
				Help:      "Chat processing attempts by outcome",
			},
			[]string{"outcome"},
		),

		retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "processor",
				Name:      "chat_retries_total",
				Help:      "Chat processing retries after a failed attempt",
			},
		),

		subscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "broadcast",
				Name:      "session_subscribers",
				Help:      "Live session subscribers",
			},
		),

		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "broadcast",
				Name:      "session_events_published_total",
				Help:      "Session events delivered to a subscriber by type",
			},
			[]string{"type"},
		),

		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "broadcast",
				Name:      "session_events_dropped_total",
				Help:      "Session events not delivered by reason",
			},
			[]string{"reason"},
		),
	}

	c.registry.MustRegister(
		c.streamEvents,
		c.upstreamErrors,
		c.streamDuration,
		c.attempts,
		c.retries,
		c.subscribers,
		c.published,
		c.dropped,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// RecordStreamEvent counts a normalized event.
func (c *Collector) RecordStreamEvent(provider string, kind domain.StreamEventKind) {
	c.streamEvents.WithLabelValues(provider, kind.String()).Inc()
}

// RecordUpstreamError counts an upstream failure by its kind.
func (c *Collector) RecordUpstreamError(provider string, err error) {
	c.upstreamErrors.WithLabelValues(provider, domain.ErrorKindLabel(err)).Inc()
}

// RecordStreamDuration observes how long a stream stayed open.
func (c *Collector) RecordStreamDuration(provider string, d time.Duration) {
	c.streamDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordAttempt counts a processor attempt.
func (c *Collector) RecordAttempt(outcome string) {
	c.attempts.WithLabelValues(outcome).Inc()
}

// RecordRetry counts a processor retry.
func (c *Collector) RecordRetry() {
	c.retries.Inc()
}

// SetSubscribers sets the live subscriber gauge.
func (c *Collector) SetSubscribers(n int) {
	c.subscribers.Set(float64(n))
}

// RecordPublished counts a delivered session event.
func (c *Collector) RecordPublished(eventType domain.SessionEventType) {
	c.published.WithLabelValues(string(eventType)).Inc()
}

// RecordDropped counts an undelivered session event.
func (c *Collector) RecordDropped(reason string) {
	c.dropped.WithLabelValues(reason).Inc()
}

// ObservePool registers gauges that read the worker pool on every scrape.
func (c *Collector) ObservePool(stats func() (workers, queued int)) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: c.namespace,
				Subsystem: "worker",
				Name:      "pool_workers",
				Help:      "Running worker goroutines",
			},
			func() float64 {
				workers, _ := stats()
				return float64(workers)
			},
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: c.namespace,
				Subsystem: "worker",
				Name:      "pool_queued_tasks",
				Help:      "Tasks waiting for a worker",
			},
			func() float64 {
				_, queued := stats()
				return float64(queued)
			},
		),
	)
}
