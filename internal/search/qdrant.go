package search

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/mkalyango/faqbot/internal/rag"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantClient implements rag.SearchClient backed by a Qdrant collection.
// Qdrant has no scored lexical search, so only the vector strategy is
// supported; text and hybrid requests are rejected by Supports before they
// reach this client.
//
// Each FAQ entry is stored as one point with two named vectors matching the
// retrievable vector fields, so the same vector-field selection works across
// backends.
type QdrantClient struct {
	client *qdrant.Client
}

// NewQdrantClient creates a QdrantClient from the given config.
func NewQdrantClient(cfg *QdrantConfig) (*QdrantClient, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("search: failed to create qdrant client: %w", err)
	}

	return &QdrantClient{client: client}, nil
}

// NewQdrantClientFromEnv creates a QdrantClient from QDRANT_HOST,
// QDRANT_PORT, QDRANT_API_KEY, and QDRANT_TLS.
func NewQdrantClientFromEnv() (*QdrantClient, error) {
	port := 6334
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	return NewQdrantClient(&QdrantConfig{
		Host:   os.Getenv("QDRANT_HOST"),
		Port:   port,
		APIKey: os.Getenv("QDRANT_API_KEY"),
		UseTLS: os.Getenv("QDRANT_TLS") == "true",
	})
}

// Supports reports true only for the vector strategy.
func (c *QdrantClient) Supports(s rag.Strategy) bool {
	return s == rag.StrategyVector
}

// Search runs a cosine similarity query against the named vector and maps
// the point payloads back into passages.
func (c *QdrantClient) Search(ctx context.Context, req *rag.SearchRequest) ([]rag.Passage, error) {
	if req.Strategy != rag.StrategyVector {
		return nil, fmt.Errorf("search: qdrant backend supports only vector search, got %q", req.Strategy)
	}

	limit := uint64(req.K)
	results, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: req.Index,
		Query:          qdrant.NewQuery(req.Vector...),
		Using:          &req.Field,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search: qdrant query failed: %w", err)
	}

	passages := make([]rag.Passage, 0, len(results))
	for _, r := range results {
		p := rag.Passage{
			ID:    r.Id.GetUuid(),
			Score: float64(r.Score),
		}
		if payload := r.Payload; payload != nil {
			if v, ok := payload["id"]; ok && v.GetStringValue() != "" {
				p.ID = v.GetStringValue()
			}
			if v, ok := payload["question"]; ok {
				p.Question = v.GetStringValue()
			}
			if v, ok := payload["answer"]; ok {
				p.Answer = v.GetStringValue()
			}
			if v, ok := payload["section"]; ok {
				p.Section = v.GetStringValue()
			}
		}
		passages = append(passages, p)
	}

	return passages, nil
}

// EnsureIndex creates the collection with both named vectors if it does not
// already exist.
func (c *QdrantClient) EnsureIndex(ctx context.Context, index string, dims int) error {
	exists, err := c.client.CollectionExists(ctx, index)
	if err != nil {
		return fmt.Errorf("search: check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	size := uint64(dims)
	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: index,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			rag.DefaultVectorField: {Size: size, Distance: qdrant.Distance_Cosine},
			rag.DefaultHybridField: {Size: size, Distance: qdrant.Distance_Cosine},
		}),
	})
	if err != nil {
		return fmt.Errorf("search: create collection %q: %w", index, err)
	}

	return nil
}

// Upsert stores a batch of documents as points with named vectors. Document
// IDs are mapped to deterministic UUIDs so re-ingesting the same source
// overwrites rather than duplicates.
func (c *QdrantClient) Upsert(ctx context.Context, index string, docs []FAQDocument) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		vectors := make(map[string]*qdrant.Vector, 2)
		if len(doc.QuestionVector) > 0 {
			vectors[rag.DefaultVectorField] = qdrant.NewVector(doc.QuestionVector...)
		}
		if len(doc.QuestionAnswerVector) > 0 {
			vectors[rag.DefaultHybridField] = qdrant.NewVector(doc.QuestionAnswerVector...)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointUUID(doc.ID)),
			Vectors: qdrant.NewVectorsMap(vectors),
			Payload: qdrant.NewValueMap(map[string]any{
				"id":       doc.ID,
				"section":  doc.Section,
				"question": doc.Question,
				"answer":   doc.Answer,
			}),
		})
	}

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: index,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("search: qdrant upsert failed: %w", err)
	}

	return nil
}

// Ping checks server reachability. Used by the readiness probe.
func (c *QdrantClient) Ping(ctx context.Context) error {
	if _, err := c.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("search: qdrant health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (c *QdrantClient) Close() error {
	return c.client.Close()
}

// pointUUID derives a stable UUID from an arbitrary document ID. Qdrant
// point IDs must be UUIDs or integers; name-based UUIDs keep re-ingestion
// idempotent.
func pointUUID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}
