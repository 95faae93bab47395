package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestMiddleware_counts_errors(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	for _, p := range []string{"/ok", "/bad", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	if got := testutil.ToFloat64(m.requestsTotal); got != 3 {
		t.Errorf("requests = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestMetrics_relay_counters(t *testing.T) {
	m := New()
	m.IncRelays("proxy_fetch")
	m.AddRelayedBytes("proxy_fetch", 1024)
	m.AddRelayedBytes("proxy_fetch", 0)
	m.ObserveResolution("youtube", "error")

	if got := testutil.ToFloat64(m.relayedBytesTotal.WithLabelValues("proxy_fetch")); got != 1024 {
		t.Errorf("relayed bytes = %v, want 1024", got)
	}
	if got := testutil.ToFloat64(m.resolutionsTotal.WithLabelValues("youtube", "error")); got != 1 {
		t.Errorf("resolution errors = %v, want 1", got)
	}
}

func TestHandler_refreshes_gauges(t *testing.T) {
	m := New()
	called := false
	h := m.Handler(func() {
		called = true
		m.SetActiveSessions(4)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !called {
		t.Error("updateGauges should run before the scrape")
	}
	if !strings.Contains(rec.Body.String(), "mediarelay_active_sessions 4") {
		t.Errorf("scrape should expose the refreshed gauge:\n%s", rec.Body.String())
	}
}
