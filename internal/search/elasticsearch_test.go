package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkalyango/faqbot/internal/rag"
)

// newTestClient returns an ElasticClient pointed at a stub server that
// captures the search request body and replies with canned hits.
func newTestClient(t *testing.T, capture *map[string]any, hits string) *ElasticClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodGet {
			body, _ := io.ReadAll(r.Body)
			if len(body) > 0 && capture != nil {
				var parsed map[string]any
				if err := json.Unmarshal(body, &parsed); err != nil {
					t.Errorf("request body is not JSON: %v", err)
				}
				*capture = parsed
			}
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, hits)
	}))
	t.Cleanup(srv.Close)

	c, err := NewElasticClient(&ElasticConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewElasticClient: %v", err)
	}
	return c
}

const cannedHits = `{"hits":{"hits":[
	{"_id":"es-1","_score":4.2,"_source":{"id":"faq-1","section":"enrollment","question":"Can I still join?","answer":"Yes, until the start date."}},
	{"_id":"es-2","_score":3.1,"_source":{"id":"faq-2","section":"refunds","question":"How do refunds work?","answer":"Within 30 days."}}
]}}`

func TestSearchTextQueryShape(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	c := newTestClient(t, &captured, cannedHits)

	passages, err := c.Search(context.Background(), &rag.SearchRequest{
		Strategy: rag.StrategyText,
		Index:    "faq-questions",
		Query:    "can I still join",
		K:        5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if _, has := captured["knn"]; has {
		t.Error("text search must not contain a knn clause")
	}
	if captured["size"] != float64(5) {
		t.Errorf("size = %v, want 5", captured["size"])
	}
	mm := dig(t, captured, "query", "bool", "must", "multi_match")
	if mm["query"] != "can I still join" {
		t.Errorf("multi_match query = %v", mm["query"])
	}
	if mm["type"] != "best_fields" {
		t.Errorf("multi_match type = %v", mm["type"])
	}
	if _, boosted := mm["boost"]; boosted {
		t.Error("text search must not boost the lexical channel")
	}

	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].ID != "faq-1" || passages[0].Score != 4.2 || passages[0].Section != "enrollment" {
		t.Errorf("unexpected first passage %+v", passages[0])
	}
}

func TestSearchVectorQueryShape(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	c := newTestClient(t, &captured, cannedHits)

	_, err := c.Search(context.Background(), &rag.SearchRequest{
		Strategy:      rag.StrategyVector,
		Index:         "faq-questions",
		Field:         "question_text_vector",
		Vector:        []float32{0.1, 0.2},
		K:             5,
		NumCandidates: 10000,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if _, has := captured["query"]; has {
		t.Error("vector search must not contain a lexical query clause")
	}
	knn := captured["knn"].(map[string]any)
	if knn["field"] != "question_text_vector" {
		t.Errorf("knn field = %v", knn["field"])
	}
	if knn["k"] != float64(5) || knn["num_candidates"] != float64(10000) {
		t.Errorf("knn k/num_candidates = %v/%v", knn["k"], knn["num_candidates"])
	}
	if _, boosted := knn["boost"]; boosted {
		t.Error("vector search must not boost the knn channel")
	}
}

func TestSearchHybridQueryShape(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	c := newTestClient(t, &captured, cannedHits)

	_, err := c.Search(context.Background(), &rag.SearchRequest{
		Strategy:      rag.StrategyHybrid,
		Index:         "faq-questions",
		Query:         "refund policy",
		Field:         "question_answer_vector",
		Vector:        []float32{0.3, 0.4},
		K:             5,
		NumCandidates: 10000,
		Boost:         0.5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	knn := captured["knn"].(map[string]any)
	if knn["field"] != "question_answer_vector" {
		t.Errorf("knn field = %v", knn["field"])
	}
	if knn["boost"] != float64(0.5) {
		t.Errorf("knn boost = %v, want 0.5", knn["boost"])
	}
	mm := dig(t, captured, "query", "bool", "must", "multi_match")
	if mm["boost"] != float64(0.5) {
		t.Errorf("lexical boost = %v, want 0.5", mm["boost"])
	}
	if mm["query"] != "refund policy" {
		t.Errorf("lexical query = %v", mm["query"])
	}
	if captured["size"] != float64(5) {
		t.Errorf("size = %v, want 5", captured["size"])
	}
}

func TestSearchErrorResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"reason":"parsing_exception"}}`)
	}))
	defer srv.Close()

	c, err := NewElasticClient(&ElasticConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewElasticClient: %v", err)
	}

	_, err = c.Search(context.Background(), &rag.SearchRequest{
		Strategy: rag.StrategyText,
		Index:    "faq-questions",
		Query:    "q",
		K:        5,
	})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestElasticSupportsAllStrategies(t *testing.T) {
	t.Parallel()

	c := &ElasticClient{}
	for _, s := range []rag.Strategy{rag.StrategyText, rag.StrategyVector, rag.StrategyHybrid} {
		if !c.Supports(s) {
			t.Errorf("Supports(%s) = false", s)
		}
	}
}

func TestQdrantSupportsVectorOnly(t *testing.T) {
	t.Parallel()

	c := &QdrantClient{}
	if !c.Supports(rag.StrategyVector) {
		t.Error("Supports(vector) = false")
	}
	if c.Supports(rag.StrategyText) || c.Supports(rag.StrategyHybrid) {
		t.Error("qdrant backend must reject text and hybrid strategies")
	}
}

func TestPointUUIDDeterministic(t *testing.T) {
	t.Parallel()

	a := pointUUID("faq-1")
	b := pointUUID("faq-1")
	if a != b {
		t.Errorf("pointUUID not deterministic: %s vs %s", a, b)
	}
	if a == pointUUID("faq-2") {
		t.Error("distinct IDs must map to distinct UUIDs")
	}
}

// dig walks nested map[string]any keys, failing the test on a missing level.
func dig(t *testing.T, m map[string]any, keys ...string) map[string]any {
	t.Helper()
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			t.Fatalf("missing or non-object key %q in %v", k, cur)
		}
		cur = next
	}
	return cur
}
