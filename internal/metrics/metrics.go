// Package metrics implements the Sink every adapter's httpclient.Client
// can report request outcomes to (SPEC_FULL.md §4.C), grounded on
// original_source's AbstractMetricGateway/VoidMetricGateway split: a
// small interface plus a no-op implementation, now backed by Prometheus
// instead of a hand-rolled gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// latencyBucketsMs are the histogram buckets spec.md §4.3 requires an
// HttpClient's latency observations to fall into (5-1000ms).
var latencyBucketsMs = []float64{5, 10, 25, 50, 100, 250, 500, 1000}

// Sink is the metrics surface core components report through. IncCounter
// and ObserveHistogram take a method label identifying the call site;
// SetGauge reports a point-in-time value such as a cache's current size.
type Sink interface {
	IncCounter(method string)
	ObserveHistogram(method string, ms float64)
	SetGauge(name string, v float64)
}

// NoopSink discards every observation; the VoidMetricGateway equivalent
// and the zero-cost default for components not wired to a Sink.
type NoopSink struct{}

func (NoopSink) IncCounter(string)            {}
func (NoopSink) ObserveHistogram(string, float64) {}
func (NoopSink) SetGauge(string, float64)     {}

// PrometheusSink registers a counter, a histogram, and a gauge vector
// against a private prometheus.Registry (never the global default
// registry, so multiple coincenter processes in one test binary don't
// collide) and exposes them through Handler for an optional metrics
// server.
type PrometheusSink struct {
	registry  *prometheus.Registry
	counter   *prometheus.CounterVec
	histogram *prometheus.HistogramVec
	gauge     *prometheus.GaugeVec
}

// NewPrometheusSink builds a PrometheusSink with its own registry.
func NewPrometheusSink() *PrometheusSink {
	registry := prometheus.NewRegistry()
	s := &PrometheusSink{
		registry: registry,
		counter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coincenter_calls_total",
			Help: "Number of core operations performed, labeled by method.",
		}, []string{"method"}),
		histogram: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coincenter_call_duration_ms",
			Help:    "Duration of core operations in milliseconds, labeled by method.",
			Buckets: latencyBucketsMs,
		}, []string{"method"}),
		gauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coincenter_gauge",
			Help: "Point-in-time values reported by core components, labeled by name.",
		}, []string{"name"}),
	}
	registry.MustRegister(s.counter, s.histogram, s.gauge)
	return s
}

func (s *PrometheusSink) IncCounter(method string) {
	s.counter.WithLabelValues(method).Inc()
}

func (s *PrometheusSink) ObserveHistogram(method string, ms float64) {
	s.histogram.WithLabelValues(method).Observe(ms)
}

func (s *PrometheusSink) SetGauge(name string, v float64) {
	s.gauge.WithLabelValues(name).Set(v)
}

// Handler exposes this sink's registry in the Prometheus text exposition
// format, for mounting under an optional metrics HTTP server.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// HTTPRecorder adapts a Sink to httpclient.MetricsRecorder, translating
// one request observation into a counter increment plus a latency sample.
type HTTPRecorder struct {
	sink Sink
}

// NewHTTPRecorder wraps sink as an httpclient.MetricsRecorder so every
// venue Stack's Client can report through the same Sink the rest of the
// process uses.
func NewHTTPRecorder(sink Sink) *HTTPRecorder {
	return &HTTPRecorder{sink: sink}
}

func (r *HTTPRecorder) ObserveRequest(venue string, basePos int, d time.Duration, statusCode int, err error) {
	method := venue
	r.sink.IncCounter(method)
	r.sink.ObserveHistogram(method, float64(d.Milliseconds()))
	if err != nil {
		r.sink.IncCounter(method + ":error")
	}
}
