// Package ingest implements the FAQ document ingestion pipeline.
// It loads FAQ records from a JSON file, embeds the question text and the
// concatenated question+answer text, and upserts the results into the search
// index. This pipeline is invoked by the `faqbot ingest` CLI command.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mkalyango/faqbot/internal/rag"
	"github.com/mkalyango/faqbot/internal/search"
)

// Record is one FAQ entry as it appears in the source JSON file.
type Record struct {
	// ID is the stable document identifier. Derived from the content when
	// the source omits it.
	ID string `json:"id,omitempty"`

	// Section is the FAQ section or category label.
	Section string `json:"section"`

	// Question is the FAQ question text.
	Question string `json:"question"`

	// Answer is the FAQ answer text.
	Answer string `json:"answer"`
}

// Indexer is the index-side surface the pipeline writes to. Both the
// Elasticsearch and the Qdrant clients satisfy it.
type Indexer interface {
	// EnsureIndex creates the index with the FAQ schema if missing.
	EnsureIndex(ctx context.Context, index string, dims int) error
	// Upsert writes a batch of embedded documents to the index.
	Upsert(ctx context.Context, index string, docs []search.FAQDocument) error
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// Index is the target index or collection name.
	Index string

	// Dimensions is the embedding vector size used when creating the index.
	Dimensions int

	// BatchSize is the number of records embedded and upserted per round
	// trip. Defaults to 64 if zero.
	BatchSize int
}

// Pipeline orchestrates the load → embed → upsert flow for a FAQ file.
type Pipeline struct {
	// embedder converts FAQ text into dense vector embeddings.
	embedder rag.Embedder

	// indexer persists the embedded documents.
	indexer Indexer

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, indexer Indexer, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder must not be nil")
	}
	if indexer == nil {
		return nil, fmt.Errorf("ingest: indexer must not be nil")
	}
	if cfg == nil || cfg.Index == "" {
		return nil, fmt.Errorf("ingest: index name must not be empty")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("ingest: dimensions must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}

	return &Pipeline{
		embedder: embedder,
		indexer:  indexer,
		cfg:      cfg,
	}, nil
}

// Load reads FAQ records from a JSON file. The file holds a flat array of
// records. Records missing a question or answer are rejected.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("ingest: parse %s: %w", path, err)
	}

	for i := range records {
		if strings.TrimSpace(records[i].Question) == "" || strings.TrimSpace(records[i].Answer) == "" {
			return nil, fmt.Errorf("ingest: record %d is missing question or answer", i)
		}
		if records[i].ID == "" {
			records[i].ID = recordID(&records[i])
		}
	}

	return records, nil
}

// Ingest embeds and upserts all records in batches. It ensures the index
// schema exists first, processes batches sequentially, and returns the first
// error encountered. Progress is reported via the optional callback.
func (p *Pipeline) Ingest(ctx context.Context, records []Record, progress func(msg string)) error {
	if progress == nil {
		progress = func(string) {}
	}
	if len(records) == 0 {
		return fmt.Errorf("ingest: no records to ingest")
	}

	if err := p.indexer.EnsureIndex(ctx, p.cfg.Index, p.cfg.Dimensions); err != nil {
		return fmt.Errorf("ingest: ensure index: %w", err)
	}
	progress(fmt.Sprintf("index %s ready, ingesting %d records", p.cfg.Index, len(records)))

	for start := 0; start < len(records); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		docs, err := p.embedBatch(ctx, batch)
		if err != nil {
			return err
		}

		if err := p.indexer.Upsert(ctx, p.cfg.Index, docs); err != nil {
			return fmt.Errorf("ingest: upsert batch at %d: %w", start, err)
		}

		progress(fmt.Sprintf("ingested %d/%d records", end, len(records)))
	}

	return nil
}

// embedBatch produces both vector fields for a batch in a single embedding
// round trip: the question texts first, then the question+answer texts.
func (p *Pipeline) embedBatch(ctx context.Context, batch []Record) ([]search.FAQDocument, error) {
	texts := make([]string, 0, len(batch)*2)
	for _, r := range batch {
		texts = append(texts, r.Question)
	}
	for _, r := range batch {
		texts = append(texts, r.Question+" "+r.Answer)
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ingest: embedding batch: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("ingest: expected %d embeddings, got %d", len(texts), len(embeddings))
	}

	docs := make([]search.FAQDocument, 0, len(batch))
	for i, r := range batch {
		docs = append(docs, search.FAQDocument{
			ID:                   r.ID,
			Section:              r.Section,
			Question:             r.Question,
			Answer:               r.Answer,
			QuestionVector:       embeddings[i],
			QuestionAnswerVector: embeddings[len(batch)+i],
		})
	}

	return docs, nil
}

// recordID generates a deterministic ID for a record from its content, so
// re-ingesting an unchanged file produces the same IDs.
func recordID(r *Record) string {
	h := sha256.Sum256([]byte(r.Section + "\x00" + r.Question + "\x00" + r.Answer))
	return fmt.Sprintf("%x", h[:8])
}
