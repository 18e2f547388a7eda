// Package search provides the concrete FAQ index backends behind the
// rag.SearchClient interface. Elasticsearch serves all three retrieval
// strategies (lexical, k-NN, hybrid); Qdrant serves vector search only.
// Both backends also expose the ingestion surface (index creation and
// document upsert) used by the ingest pipeline.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"

	"github.com/mkalyango/faqbot/internal/rag"
)

// lexicalFields are the document fields the lexical channel matches against.
var lexicalFields = []string{"question", "answer", "section"}

// FAQDocument is one FAQ entry as stored in the index. Vector fields are
// populated at ingestion time from the question text and the concatenated
// question+answer text.
type FAQDocument struct {
	// ID is the stable document identifier.
	ID string `json:"id"`

	// Section is the FAQ section or category label.
	Section string `json:"section"`

	// Question is the FAQ question text.
	Question string `json:"question"`

	// Answer is the FAQ answer text.
	Answer string `json:"answer"`

	// QuestionVector is the embedding of the question text.
	QuestionVector []float32 `json:"question_text_vector,omitempty"`

	// QuestionAnswerVector is the embedding of the question and answer
	// concatenated.
	QuestionAnswerVector []float32 `json:"question_answer_vector,omitempty"`
}

// ElasticClient implements rag.SearchClient against an Elasticsearch
// cluster. It supports every retrieval strategy. Safe for concurrent use.
type ElasticClient struct {
	es *elasticsearch.Client
}

// ElasticConfig holds the settings for constructing an ElasticClient.
type ElasticConfig struct {
	// URL is the Elasticsearch endpoint (e.g. "http://localhost:9200").
	URL string
	// APIKey is the optional Elasticsearch API key.
	APIKey string
}

// NewElasticClient constructs an ElasticClient from the given config.
func NewElasticClient(cfg *ElasticConfig) (*ElasticClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("search: elasticsearch URL must not be empty")
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("search: failed to create elasticsearch client: %w", err)
	}
	return &ElasticClient{es: es}, nil
}

// NewElasticClientFromEnv constructs an ElasticClient from ELASTIC_URL and
// ELASTIC_API_KEY.
func NewElasticClientFromEnv() (*ElasticClient, error) {
	url := os.Getenv("ELASTIC_URL")
	if url == "" {
		url = "http://localhost:9200"
	}
	return NewElasticClient(&ElasticConfig{
		URL:    url,
		APIKey: os.Getenv("ELASTIC_API_KEY"),
	})
}

// Supports reports true for every strategy — Elasticsearch handles lexical,
// k-NN, and fused hybrid queries natively.
func (c *ElasticClient) Supports(rag.Strategy) bool {
	return true
}

// Search executes the request against the index and returns the ranked
// passages. The query body depends on the strategy:
//
//	text:   best-fields multi_match over question/answer/section
//	vector: knn on the requested vector field
//	hybrid: knn plus the lexical query, each channel boosted down so the
//	        fused score weights both equally
func (c *ElasticClient) Search(ctx context.Context, req *rag.SearchRequest) ([]rag.Passage, error) {
	body, err := buildQueryBody(req)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("search: marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(req.Index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: elasticsearch request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: elasticsearch returned %s: %s", res.Status(), msg)
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	passages := make([]rag.Passage, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		p := rag.Passage{
			ID:       hit.Source.ID,
			Question: hit.Source.Question,
			Answer:   hit.Source.Answer,
			Section:  hit.Source.Section,
			Score:    hit.Score,
		}
		if p.ID == "" {
			p.ID = hit.ID
		}
		passages = append(passages, p)
	}

	return passages, nil
}

// buildQueryBody renders the strategy-specific Elasticsearch request body.
func buildQueryBody(req *rag.SearchRequest) (map[string]any, error) {
	switch req.Strategy {
	case rag.StrategyText:
		return map[string]any{
			"size": req.K,
			"query": map[string]any{
				"bool": map[string]any{
					"must": map[string]any{
						"multi_match": map[string]any{
							"query":  req.Query,
							"fields": lexicalFields,
							"type":   "best_fields",
						},
					},
				},
			},
		}, nil

	case rag.StrategyVector:
		return map[string]any{
			"knn": map[string]any{
				"field":          req.Field,
				"query_vector":   req.Vector,
				"k":              req.K,
				"num_candidates": req.NumCandidates,
			},
			"_source": []string{"answer", "section", "question", "id"},
		}, nil

	case rag.StrategyHybrid:
		return map[string]any{
			"knn": map[string]any{
				"field":          req.Field,
				"query_vector":   req.Vector,
				"k":              req.K,
				"num_candidates": req.NumCandidates,
				"boost":          req.Boost,
			},
			"query": map[string]any{
				"bool": map[string]any{
					"must": map[string]any{
						"multi_match": map[string]any{
							"query":  req.Query,
							"fields": lexicalFields,
							"type":   "best_fields",
							"boost":  req.Boost,
						},
					},
				},
			},
			"size":    req.K,
			"_source": []string{"answer", "section", "question", "id"},
		}, nil

	default:
		return nil, fmt.Errorf("search: unknown strategy %q", req.Strategy)
	}
}

// esSearchResponse is the subset of the Elasticsearch search response the
// client needs.
type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string      `json:"_id"`
			Score  float64     `json:"_score"`
			Source FAQDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// EnsureIndex creates the index with the FAQ mappings if it does not exist.
// dims is the embedding vector size used for the dense_vector fields.
func (c *ElasticClient) EnsureIndex(ctx context.Context, index string, dims int) error {
	exists, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: check index existence: %w", err)
	}
	defer exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	mapping := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":       map[string]any{"type": "keyword"},
				"section":  map[string]any{"type": "keyword"},
				"question": map[string]any{"type": "text"},
				"answer":   map[string]any{"type": "text"},
				"question_text_vector": map[string]any{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
				"question_answer_vector": map[string]any{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}

	payload, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("search: marshal index mapping: %w", err)
	}

	res, err := c.es.Indices.Create(index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("search: create index %q: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: create index %q returned %s: %s", index, res.Status(), msg)
	}

	return nil
}

// Upsert indexes a batch of documents via the bulk API. Documents with the
// same ID are overwritten.
func (c *ElasticClient) Upsert(ctx context.Context, index string, docs []FAQDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		action := map[string]any{
			"index": map[string]any{"_index": index, "_id": doc.ID},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("search: encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return fmt.Errorf("search: encode bulk document: %w", err)
		}
	}

	res, err := c.es.Bulk(bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("search: bulk upsert failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: bulk upsert returned %s: %s", res.Status(), msg)
	}

	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("search: decode bulk response: %w", err)
	}
	if bulkRes.Errors {
		for _, item := range bulkRes.Items {
			for _, op := range item {
				if op.Error != nil {
					return fmt.Errorf("search: bulk item failed with status %d: %s", op.Status, op.Error.Reason)
				}
			}
		}
		return fmt.Errorf("search: bulk upsert reported item errors")
	}

	return nil
}

// Ping checks cluster reachability. Used by the readiness probe.
func (c *ElasticClient) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: elasticsearch ping returned %s", res.Status())
	}
	return nil
}
