package metrics

import (
	"net/http"
	"time"

	errs "butterfliy/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives request and retry events from the API client
type Recorder interface {
	// ObserveRequest records one finished HTTP exchange; err is nil on success
	ObserveRequest(method string, err error, duration time.Duration)
	// ObserveRetry records a retry scheduled after err
	ObserveRetry(err error)
	// ObserveExhausted records a transient failure returned after the last retry
	ObserveExhausted(err error)
}

// Class returns the metric label for an outcome
func Class(err error) string {
	if err == nil {
		return "ok"
	}
	return string(errs.Classify(err).Class())
}

// PrometheusRecorder records events into Prometheus collectors
type PrometheusRecorder struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	retries   *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	registry  *prometheus.Registry
}

// NewPrometheusRecorder creates the collectors and registers them on a
// private registry
func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "butterfliy_requests_total",
				Help: "Total number of API requests by outcome class",
			},
			[]string{"method", "class"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "butterfliy_request_duration_seconds",
				Help:    "API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "butterfliy_retries_total",
				Help: "Total number of retries scheduled by failure class",
			},
			[]string{"class"},
		),
		exhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "butterfliy_retry_exhausted_total",
				Help: "Transient failures returned after the retry budget was spent",
			},
			[]string{"class"},
		),
		registry: prometheus.NewRegistry(),
	}

	r.registry.MustRegister(r.requests, r.latency, r.retries, r.exhausted)
	return r
}

func (r *PrometheusRecorder) ObserveRequest(method string, err error, duration time.Duration) {
	r.requests.WithLabelValues(method, Class(err)).Inc()
	r.latency.WithLabelValues(method).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveRetry(err error) {
	r.retries.WithLabelValues(Class(err)).Inc()
}

func (r *PrometheusRecorder) ObserveExhausted(err error) {
	r.exhausted.WithLabelValues(Class(err)).Inc()
}

// Registry exposes the registry for tests and custom handlers
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus text format
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// NopRecorder discards all events
type NopRecorder struct{}

func (NopRecorder) ObserveRequest(string, error, time.Duration) {}
func (NopRecorder) ObserveRetry(error)                          {}
func (NopRecorder) ObserveExhausted(error)                      {}
