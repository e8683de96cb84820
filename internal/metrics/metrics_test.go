package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Exposition(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveCall("logEvent", "ok", 2*time.Millisecond)
	m.ObserveHandshake("NotificationReceived", "timed_out")
	m.ObserveEvent("flurry_flutter_plugin_event_config")

	body := scrape(t, m)
	assert.Contains(t, body, `flurrybridge_calls_total{method="logEvent",outcome="ok"} 1`)
	assert.Contains(t, body, `flurrybridge_notification_handshakes_total{outcome="timed_out",type="NotificationReceived"} 1`)
	assert.Contains(t, body, `flurrybridge_events_total{channel="flurry_flutter_plugin_event_config"} 1`)
}

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	t.Parallel()

	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Post("/api/call/{method}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/call/logEvent", nil))

	assert.Contains(t, scrape(t, m), `http_requests_total{method="POST",path="/api/call/{method}",status="418"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveCall("x", "ok", time.Second)
	m.ObserveHandshake("x", "y")
	m.ObserveEvent("x")

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, m.Middleware(next))
}
