// Package metrics exports bridge counters to Prometheus. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	handshakes   *prometheus.CounterVec
	events       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the bridge collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flurrybridge_calls_total",
			Help: "Dispatched method calls by method and outcome.",
		}, []string{"method", "outcome"}),
		callDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flurrybridge_call_duration_seconds",
			Help:    "Duration of dispatched method calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		handshakes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flurrybridge_notification_handshakes_total",
			Help: "Notification decision handshakes by event type and outcome.",
		}, []string{"type", "outcome"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flurrybridge_events_total",
			Help: "Events emitted on each event channel.",
		}, []string{"channel"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
	}
}

func (m *Metrics) ObserveCall(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.callDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) ObserveHandshake(typ, outcome string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(typ, outcome).Inc()
}

func (m *Metrics) ObserveEvent(channel string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(channel).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records RED metrics keyed by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := strconv.Itoa(ww.Status())
		m.httpDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(path, r.Method, status).Inc()
	})
}
