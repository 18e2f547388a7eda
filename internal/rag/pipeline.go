package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkalyango/faqbot/internal/logging"
	"github.com/mkalyango/faqbot/internal/pricing"
)

// Request describes one pipeline invocation.
type Request struct {
	// Query is the user's natural-language question.
	Query string

	// ModelID is the provider-prefixed generation model identifier.
	ModelID string

	// Strategy selects the retrieval strategy.
	Strategy Strategy

	// Index is the search index to retrieve from.
	Index string
}

// Result is the terminal aggregate of one pipeline run. Both token usage
// pairs are carried flattened (generation and evaluation) because the call
// costs are accounted for separately downstream.
type Result struct {
	// Answer is the generated answer text.
	Answer string

	// ResponseTime is the wall-clock latency of the generation call.
	ResponseTime time.Duration

	// Relevance is the evaluator's verdict label.
	Relevance Relevance

	// RelevanceExplanation is the evaluator's justification.
	RelevanceExplanation string

	// ModelUsed is the generation model identifier the caller requested.
	ModelUsed string

	// Usage is the generation call's token usage.
	Usage TokenUsage

	// EvalUsage is the evaluation call's token usage.
	EvalUsage TokenUsage

	// Cost is the estimated monetary cost of the generation call in USD.
	Cost float64

	// Degraded is true when retrieval failed and the answer was generated
	// without grounding context.
	Degraded bool
}

// Pipeline composes embedding, retrieval, prompt construction, generation,
// evaluation, and cost estimation into one request/response cycle. It is the
// only component that knows about all the others; each dependency is injected
// so it can be replaced in tests.
type Pipeline struct {
	// embedder turns the query into a vector when the strategy needs one.
	embedder Embedder

	// retriever fetches candidate passages from the search index.
	retriever *Retriever

	// generator produces the answer from the rendered prompt.
	generator Generator

	// evaluator scores the answer's relevance back against the question.
	evaluator *Evaluator
}

// NewPipeline constructs a Pipeline from its injected dependencies.
// All four are required; the evaluator is constructed by the caller so the
// evaluation model choice stays a wiring concern.
func NewPipeline(embedder Embedder, retriever *Retriever, generator Generator, evaluator *Evaluator) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if retriever == nil {
		return nil, fmt.Errorf("rag: retriever must not be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("rag: generator must not be nil")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("rag: evaluator must not be nil")
	}
	return &Pipeline{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		evaluator: evaluator,
	}, nil
}

// Supports reports whether the retrieval backend can execute the strategy.
func (p *Pipeline) Supports(s Strategy) bool {
	return p.retriever.Supports(s)
}

// Answer runs one full pipeline cycle: embed (if the strategy needs a
// vector), retrieve, build the prompt, generate, evaluate, and estimate cost.
//
// Failure policy mirrors the component contracts: embedding and generation
// failures are fatal for the run and surface as the returned error (the
// caller's boundary converts them into one opaque error response); retrieval
// failures degrade to an ungrounded answer; evaluation failures degrade to an
// UNKNOWN verdict; unknown models cost zero. Callers always receive either a
// complete Result or an error — never both.
func (p *Pipeline) Answer(ctx context.Context, req *Request) (*Result, error) {
	log := logging.FromContext(ctx)
	log.Info("rag: answering",
		slog.String("model", req.ModelID),
		slog.String("strategy", string(req.Strategy)),
		slog.String("index", req.Index),
	)

	var vector []float32
	if req.Strategy != StrategyText {
		vectors, err := p.embedder.Embed(ctx, []string{req.Query})
		if err != nil {
			return nil, fmt.Errorf("rag: embedding query: %w", err)
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("rag: embedder returned no vector for query")
		}
		vector = vectors[0]
	}

	retrieval := p.retriever.Retrieve(ctx, req.Strategy, req.Index, req.Query, vector)

	prompt := BuildPrompt(req.Query, retrieval.Passages)

	answer, err := p.generator.Generate(ctx, req.ModelID, prompt)
	if err != nil {
		return nil, fmt.Errorf("rag: generating answer: %w", err)
	}

	verdict := p.evaluator.Evaluate(ctx, req.Query, answer.Text)

	cost := pricing.EstimateCost(req.ModelID, answer.Usage.PromptTokens, answer.Usage.CompletionTokens)

	log.Info("rag: answer complete",
		slog.String("relevance", string(verdict.Relevance)),
		slog.Duration("response_time", answer.ResponseTime),
		slog.Int("total_tokens", answer.Usage.TotalTokens),
		slog.Float64("cost", cost),
	)

	return &Result{
		Answer:               answer.Text,
		ResponseTime:         answer.ResponseTime,
		Relevance:            verdict.Relevance,
		RelevanceExplanation: verdict.Explanation,
		ModelUsed:            req.ModelID,
		Usage:                answer.Usage,
		EvalUsage:            verdict.Usage,
		Cost:                 cost,
		Degraded:             retrieval.Degraded,
	}, nil
}
