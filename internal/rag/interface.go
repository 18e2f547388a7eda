// Package rag implements the retrieval-augmented-generation pipeline behind
// faqbot: query embedding, multi-strategy passage retrieval, prompt
// construction, answer generation, relevance evaluation, and cost accounting.
// Concrete backends (Elasticsearch, Qdrant, the LLM providers) satisfy the
// interfaces defined here so the pipeline never depends on a specific service.
package rag

import (
	"context"
	"fmt"
	"time"
)

// Strategy selects how passages are retrieved from the search index.
type Strategy string

const (
	// StrategyText is a pure lexical best-fields match across the
	// question, answer, and section fields.
	StrategyText Strategy = "text"

	// StrategyVector is a pure k-nearest-neighbor search on a named
	// vector field.
	StrategyVector Strategy = "vector"

	// StrategyHybrid fuses lexical and k-NN scores in a single request,
	// each channel discounted by a boost factor so neither dominates.
	StrategyHybrid Strategy = "hybrid"
)

// ParseStrategy converts a request string into a Strategy.
// Returns an error for anything outside the closed set.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyText, StrategyVector, StrategyHybrid:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("rag: unknown search strategy %q — valid values: text, vector, hybrid", s)
	}
}

// Passage is a single FAQ retrieval unit owned by the search index.
// The pipeline treats passages as read-only.
type Passage struct {
	// ID is the opaque document identifier assigned at ingestion time.
	ID string

	// Question is the FAQ question text.
	Question string

	// Answer is the FAQ answer text.
	Answer string

	// Section is the FAQ section or category label.
	Section string

	// Score is the relevance score assigned by the index (lexical score,
	// cosine similarity, or fused score depending on strategy).
	Score float64
}

// SearchRequest is the strategy-tagged query descriptor handed to a
// SearchClient. Fields that do not apply to the selected strategy are left
// zero: Vector and Field are unset for text searches, Boost is unset for
// everything except hybrid.
type SearchRequest struct {
	// Strategy selects the retrieval mode.
	Strategy Strategy

	// Index is the name of the search index to query.
	Index string

	// Query is the lexical query text (text and hybrid strategies).
	Query string

	// Field is the vector field to search (vector and hybrid strategies).
	Field string

	// Vector is the query embedding (vector and hybrid strategies).
	Vector []float32

	// K is the number of results to return.
	K int

	// NumCandidates is the approximate-nearest-neighbor candidate pool
	// considered before final top-K ranking.
	NumCandidates int

	// Boost is the per-channel score discount applied to both the lexical
	// and the k-NN component of a hybrid search.
	Boost float64
}

// SearchClient executes a SearchRequest against a concrete search backend.
// Implementations must be safe to call from multiple goroutines.
type SearchClient interface {
	// Search returns the top-K passages for the request, relevance-ranked.
	Search(ctx context.Context, req *SearchRequest) ([]Passage, error)

	// Supports reports whether the backend can execute the given strategy.
	Supports(s Strategy) bool
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// TokenUsage records the token counts consumed by one model invocation.
type TokenUsage struct {
	// PromptTokens is the number of input tokens billed.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of output tokens billed.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the sum reported by the provider.
	TotalTokens int `json:"total_tokens"`
}

// Answer is the product of one generation call: the model's free-text answer,
// the token usage it consumed, and the wall-clock latency of the call.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Usage is the token usage reported by the provider for this call.
	Usage TokenUsage

	// ResponseTime is the wall-clock duration of the model invocation.
	ResponseTime time.Duration
}

// Generator sends a single-turn prompt to a language model selected by a
// provider-prefixed model identifier (e.g. "openai/gpt-3.5-turbo").
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	// Generate returns the model's answer for the prompt.
	// An identifier with an unsupported provider prefix fails without any
	// network call being attempted.
	Generate(ctx context.Context, modelID, prompt string) (*Answer, error)
}
