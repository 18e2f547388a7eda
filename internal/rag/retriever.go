package rag

import (
	"context"
	"log/slog"

	"github.com/mkalyango/faqbot/internal/logging"
)

// Retrieval parameters shared by every strategy. K caps the result size;
// the candidate pool widens the approximate-nearest-neighbor scan before
// final ranking, trading index scan cost for recall; the hybrid boost
// discounts each channel so neither lexical nor vector scores dominate the
// fused ranking.
const (
	// DefaultTopK is the number of passages returned per retrieval.
	DefaultTopK = 5

	// DefaultNumCandidates is the k-NN candidate pool size.
	DefaultNumCandidates = 10000

	// DefaultHybridBoost is the per-channel boost for hybrid searches.
	DefaultHybridBoost = 0.5
)

// Default vector fields queried per strategy. Pure vector searches match the
// query against the embedded question text; hybrid searches match against the
// combined question+answer embedding, which works better when the lexical
// channel already covers the question wording.
const (
	// DefaultVectorField is the field searched by the vector strategy.
	DefaultVectorField = "question_text_vector"

	// DefaultHybridField is the field searched by the hybrid strategy.
	DefaultHybridField = "question_answer_vector"
)

// Retrieval is the tagged outcome of one retrieval. A backend failure never
// propagates to the pipeline: it degrades to an empty passage list with
// Degraded set, so generation can still proceed with no context. A degraded
// (ungrounded) answer is preferred to no answer.
type Retrieval struct {
	// Passages is the relevance-ranked result set, length ≤ K. May be empty.
	Passages []Passage

	// Degraded is true when the search backend failed and the empty result
	// is a fallback rather than a genuine empty match.
	Degraded bool
}

// Retriever fetches the top-K candidate passages for a query using one of
// the three search strategies. It owns the strategy-to-field mapping and the
// degrade-on-failure policy; the underlying SearchClient only executes
// fully-specified requests.
type Retriever struct {
	// client executes search requests against the concrete backend.
	client SearchClient

	// topK is the number of passages to return.
	topK int

	// numCandidates is the k-NN candidate pool size.
	numCandidates int

	// hybridBoost is the per-channel boost for hybrid searches.
	hybridBoost float64

	// vectorField is the field searched by the vector strategy.
	vectorField string

	// hybridField is the field searched by the hybrid strategy.
	hybridField string
}

// RetrieverConfig holds optional overrides for NewRetriever.
// Zero values fall back to the package defaults.
type RetrieverConfig struct {
	// TopK overrides the result size (default: 5).
	TopK int

	// NumCandidates overrides the k-NN candidate pool (default: 10000).
	NumCandidates int

	// HybridBoost overrides the per-channel hybrid boost (default: 0.5).
	HybridBoost float64

	// VectorField overrides the vector-strategy field.
	VectorField string

	// HybridField overrides the hybrid-strategy field.
	HybridField string
}

// NewRetriever constructs a Retriever over the given SearchClient.
// cfg may be nil, in which case all defaults apply.
func NewRetriever(client SearchClient, cfg *RetrieverConfig) *Retriever {
	if cfg == nil {
		cfg = &RetrieverConfig{}
	}
	r := &Retriever{
		client:        client,
		topK:          cfg.TopK,
		numCandidates: cfg.NumCandidates,
		hybridBoost:   cfg.HybridBoost,
		vectorField:   cfg.VectorField,
		hybridField:   cfg.HybridField,
	}
	if r.topK <= 0 {
		r.topK = DefaultTopK
	}
	if r.numCandidates <= 0 {
		r.numCandidates = DefaultNumCandidates
	}
	if r.hybridBoost <= 0 {
		r.hybridBoost = DefaultHybridBoost
	}
	if r.vectorField == "" {
		r.vectorField = DefaultVectorField
	}
	if r.hybridField == "" {
		r.hybridField = DefaultHybridField
	}
	return r
}

// Supports reports whether the underlying backend can execute the strategy.
func (r *Retriever) Supports(s Strategy) bool {
	return r.client.Supports(s)
}

// Retrieve runs one search against the index and returns the tagged outcome.
// vector is required for the vector and hybrid strategies and ignored for
// text. Backend failures are logged and downgraded to an empty, degraded
// result — they are never returned as errors.
func (r *Retriever) Retrieve(ctx context.Context, strategy Strategy, index, query string, vector []float32) Retrieval {
	req := &SearchRequest{
		Strategy: strategy,
		Index:    index,
		K:        r.topK,
	}

	switch strategy {
	case StrategyText:
		req.Query = query
	case StrategyVector:
		req.Field = r.vectorField
		req.Vector = vector
		req.NumCandidates = r.numCandidates
	case StrategyHybrid:
		req.Query = query
		req.Field = r.hybridField
		req.Vector = vector
		req.NumCandidates = r.numCandidates
		req.Boost = r.hybridBoost
	}

	passages, err := r.client.Search(ctx, req)
	if err != nil {
		logging.FromContext(ctx).Warn("rag: search failed, continuing with empty context",
			slog.String("strategy", string(strategy)),
			slog.String("index", index),
			slog.Any("error", err),
		)
		return Retrieval{Degraded: true}
	}

	logging.FromContext(ctx).Debug("rag: retrieval complete",
		slog.String("strategy", string(strategy)),
		slog.Int("passages", len(passages)),
	)
	return Retrieval{Passages: passages}
}
