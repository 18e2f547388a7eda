package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func newHealthTestServer(pingers ...Pinger) *Server {
	return &Server{
		cfg:     &Config{},
		log:     slog.Default(),
		pingers: pingers,
		metrics: newServerMetrics(prometheus.NewRegistry()),
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s := newHealthTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := newHealthTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()
	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 in liveness-only mode, got %d", w.Code)
	}
}

func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s := newHealthTestServer(
		&NamedPinger{Label: "elasticsearch", PingFunc: func(context.Context) error { return nil }},
		&NamedPinger{Label: "sqlite", PingFunc: func(context.Context) error { return nil }},
	)
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()
	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Ready || len(resp.Checks) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleReady_OneUnhealthy(t *testing.T) {
	t.Parallel()

	s := newHealthTestServer(
		&NamedPinger{Label: "elasticsearch", PingFunc: func(context.Context) error { return nil }},
		&NamedPinger{Label: "qdrant", PingFunc: func(context.Context) error { return errors.New("connection refused") }},
	)
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()
	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var resp readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ready {
		t.Error("ready should be false")
	}
	var failed *readyCheck
	for i := range resp.Checks {
		if resp.Checks[i].Name == "qdrant" {
			failed = &resp.Checks[i]
		}
	}
	if failed == nil || failed.OK || failed.Error == "" {
		t.Errorf("qdrant check = %+v", failed)
	}
}

func TestServerNew_RouteWiring(t *testing.T) {
	t.Parallel()

	s, err := New(&fakeAnswerer{result: sampleResult()}, nil, &Config{
		APIKey:   "secret",
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.stopRL()

	h := s.httpServer.Handler

	// Health and metrics bypass auth.
	for _, path := range []string{"/api/health", "/api/ready", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code == http.StatusUnauthorized {
			t.Errorf("%s should not require auth", path)
		}
	}

	// Chat requires auth.
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("/api/chat without token: expected 401, got %d", w.Code)
	}
}
