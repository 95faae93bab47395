package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"media-relay/internal/platform/config"
	"media-relay/internal/relay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, mutate func(*config.Settings)) *app {
	t.Helper()
	s := config.Default()
	if mutate != nil {
		mutate(&s)
	}
	a, err := newApp(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return a
}

func TestRouter_healthz_and_sessions(t *testing.T) {
	r := newTestApp(t, nil).router()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRouter_metrics(t *testing.T) {
	r := newTestApp(t, nil).router()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stream", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "mediarelay_requests_total")
	assert.Contains(t, body, "mediarelay_errors_total 1")
	assert.Contains(t, body, "mediarelay_active_sessions 0")
}

func TestRouter_rate_limit(t *testing.T) {
	r := newTestApp(t, func(s *config.Settings) {
		s.RateLimit = 1
		s.RateWindow = config.Duration{Duration: time.Minute}
	}).router()

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader(`{"url":""}`))
		req.RemoteAddr = "192.0.2.1:5000"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusBadRequest, do())
	assert.Equal(t, http.StatusTooManyRequests, do())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health checks are not rate limited")
}

func TestParsePlatforms(t *testing.T) {
	tags, err := parsePlatforms([]string{"youtube", "Reddit"})
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	_, err = parsePlatforms([]string{"myspace"})
	assert.Error(t, err)
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["resolve"])
}

func TestNewApp_empty_pipe_set_proxies_youtube(t *testing.T) {
	a := newTestApp(t, func(s *config.Settings) {
		s.PipePlatforms = []string{}
		s.YouTubeEngine = "native"
	})
	assert.Equal(t, relay.ProxyFetch, a.selector.StrategyFor(relay.YouTube))

	a = newTestApp(t, nil)
	assert.Equal(t, relay.ProcessPipe, a.selector.StrategyFor(relay.YouTube))
}
