package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkalyango/faqbot/internal/rag"
	"github.com/mkalyango/faqbot/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// DefaultModel is the generation model used when a request names none.
	DefaultModel string
	// DefaultStrategy is the retrieval strategy used when a request names none.
	DefaultStrategy rag.Strategy
	// Index is the search index queried by every request.
	Index string
	// Section labels the FAQ corpus on persisted conversations.
	Section string
	// Registry receives the server's Prometheus metrics. If nil, the default
	// registry is used.
	Registry prometheus.Registerer
}

// Answerer runs one full question-answer cycle. *rag.Pipeline satisfies it;
// tests inject a fake.
type Answerer interface {
	// Answer returns the complete pipeline result for the request.
	Answer(ctx context.Context, req *rag.Request) (*rag.Result, error)
	// Supports reports whether the retrieval backend can execute the strategy.
	Supports(s rag.Strategy) bool
}

// Server is the HTTP server exposing the FAQ answer pipeline.
type Server struct {
	// pipeline answers questions.
	pipeline Answerer
	// store persists conversations and feedback. Nil disables persistence.
	store *store.SQLiteStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the user's natural language question.
	Message string `json:"message"`
	// ModelChoice optionally overrides the default generation model
	// (provider-prefixed, e.g. "openai/gpt-3.5-turbo").
	ModelChoice string `json:"model_choice,omitempty"`
	// SearchType optionally overrides the default retrieval strategy
	// (text, vector, or hybrid).
	SearchType string `json:"search_type,omitempty"`
}

// chatResponse is the JSON response for POST /api/chat.
type chatResponse struct {
	// ConversationID identifies the persisted conversation for feedback.
	ConversationID string `json:"conversation_id"`
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Relevance is the evaluator's verdict label.
	Relevance string `json:"relevance"`
	// ResponseTime is the generation latency in seconds.
	ResponseTime float64 `json:"response_time"`
	// Cost is the estimated generation cost in USD.
	Cost float64 `json:"cost"`
	// ElapsedTime is the total request latency in seconds.
	ElapsedTime float64 `json:"elapsed_time"`
}

// feedbackRequest is the JSON body for POST /api/feedback.
type feedbackRequest struct {
	// ConversationID references an existing conversation.
	ConversationID string `json:"conversation_id"`
	// Feedback is +1 (helpful) or -1 (not helpful).
	Feedback int `json:"feedback"`
}

// errorResponse is the JSON body for all error responses.
type errorResponse struct {
	// Error is the human-readable failure message.
	Error string `json:"error"`
}
