// Package server implements the HTTP API in front of the FAQ answer
// pipeline: question answering, conversation history, user feedback, and the
// operational endpoints (health, readiness, metrics).
// The server is started by the `faqbot serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkalyango/faqbot/internal/logging"
	"github.com/mkalyango/faqbot/internal/rag"
	"github.com/mkalyango/faqbot/internal/store"
)

// New constructs a Server from the pipeline, an optional conversation store,
// and config. A nil store disables persistence: answers are still served but
// conversation and feedback endpoints return 503.
func New(pipeline Answerer, st *store.SQLiteStore, cfg *Config) (*Server, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("server: pipeline must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full pipeline run (two LLM calls).
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "openai/gpt-3.5-turbo"
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = rag.StrategyHybrid
	}
	if cfg.Section == "" {
		cfg.Section = "FAQs"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if cfg.APIKey == "" {
		cfg.Logger.Warn("server: FAQBOT_API_KEY not set — API authentication is disabled")
	}

	s := &Server{
		pipeline: pipeline,
		store:    st,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.Registry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stopRL

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/chat", s.instrument("chat", s.handleChat))
	protected.HandleFunc("GET /api/conversations", s.instrument("conversations", s.handleConversations))
	protected.HandleFunc("GET /api/conversations/{id}", s.instrument("conversation", s.handleConversation))
	protected.HandleFunc("DELETE /api/conversations/{id}", s.instrument("conversation_delete", s.handleConversationDelete))
	protected.HandleFunc("POST /api/feedback", s.instrument("feedback", s.handleFeedback))
	protected.HandleFunc("GET /api/feedback/stats", s.instrument("feedback_stats", s.handleStats))

	mux := http.NewServeMux()
	mux.Handle("/api/", authMiddleware(cfg.APIKey, rl.middleware(protected)))
	// Liveness, readiness, and metrics stay unauthenticated so orchestrators
	// and scrapers work without credentials. The more specific patterns win
	// over the protected /api/ prefix.
	mux.HandleFunc("GET /api/health", s.instrument("health", s.handleHealth))
	mux.HandleFunc("GET /api/ready", s.instrument("ready", s.handleReady))
	if gatherer, ok := cfg.Registry.(prometheus.Gatherer); ok {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(cfg.Logger, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON serialises v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError serialises a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// requireStore returns the conversation store or writes a 503 when
// persistence is disabled.
func (s *Server) requireStore(w http.ResponseWriter) *store.SQLiteStore {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "conversation persistence is disabled")
		return nil
	}
	return s.store
}
