package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/mkalyango/faqbot/internal/embedder"
	"github.com/mkalyango/faqbot/internal/llm"
	"github.com/mkalyango/faqbot/internal/provider"
	"github.com/mkalyango/faqbot/internal/rag"
	"github.com/mkalyango/faqbot/internal/search"
)

// defaultIndex is the search index used when INDEX_NAME is unset.
const defaultIndex = "faqs"

// searchBackend is the surface serve and ingest need from a search client:
// query execution for the answer pipeline plus index management for
// ingestion and a readiness probe.
type searchBackend interface {
	rag.SearchClient
	EnsureIndex(ctx context.Context, index string, dims int) error
	Upsert(ctx context.Context, index string, docs []search.FAQDocument) error
	Ping(ctx context.Context) error
}

// buildSearchClient constructs the search backend named by SEARCH_BACKEND
// (elasticsearch or qdrant, default elasticsearch). The returned close
// function is a no-op for backends without a persistent connection.
func buildSearchClient() (searchBackend, func(), error) {
	backend := getEnvOrDefault("SEARCH_BACKEND", "elasticsearch")
	switch backend {
	case "elasticsearch", "elastic", "es":
		client, err := search.NewElasticClientFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("search backend %q: %w", backend, err)
		}
		return client, func() {}, nil
	case "qdrant":
		client, err := search.NewQdrantClientFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("search backend %q: %w", backend, err)
		}
		return client, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown SEARCH_BACKEND %q (want elasticsearch or qdrant)", backend)
	}
}

// buildPipeline wires the embedder, retriever, generator, and evaluator
// into a ready-to-use answer pipeline over the given search client.
func buildPipeline(ctx context.Context, client rag.SearchClient) (*rag.Pipeline, error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("initialising embedder: %w", err)
	}

	registry, err := provider.NewRegistryFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising model backends: %w", err)
	}
	gen := llm.NewGenerator(registry)

	retriever := rag.NewRetriever(client, nil)
	evaluator := rag.NewEvaluator(gen, getEnvOrDefault("EVAL_MODEL", rag.DefaultEvalModel))

	pipeline, err := rag.NewPipeline(emb, retriever, gen, evaluator)
	if err != nil {
		return nil, fmt.Errorf("assembling pipeline: %w", err)
	}
	return pipeline, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
