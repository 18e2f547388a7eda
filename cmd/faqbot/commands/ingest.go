package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mkalyango/faqbot/internal/embedder"
	"github.com/mkalyango/faqbot/internal/ingest"
	"github.com/mkalyango/faqbot/internal/logging"
)

// NewIngestCmd constructs the `faqbot ingest` command, which loads FAQ
// records from a JSON file, embeds them, and indexes them into the search
// backend.
func NewIngestCmd() *cobra.Command {
	var file string
	var index string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index FAQ records into the search backend",
		Long: `Load FAQ records from a JSON file and index them into the search backend.

The input file is a JSON array of records with "section", "question", and
"answer" fields (an optional "id" field overrides the derived identifier).
Each record is embedded twice (question only, question plus answer) so both
vector fields are available at query time.

Required environment variables depend on the backend:
  SEARCH_BACKEND       elasticsearch (default) or qdrant
  ELASTIC_URL          Elasticsearch URL (default: http://localhost:9200)
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  faqbot ingest --file documents.json
  faqbot ingest --file documents.json --index faqs-v2
  SEARCH_BACKEND=qdrant faqbot ingest --file documents.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if file == "" {
				return fmt.Errorf("ingest: --file is required")
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			backend := embedder.ResolveBackend()
			log.Info("embedder initialised", slog.String("provider", backend))

			client, closeClient, err := buildSearchClient()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer closeClient()

			records, err := ingest.Load(file)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			log.Info("records loaded", slog.String("file", file), slog.Int("count", len(records)))

			if index == "" {
				index = getEnvOrDefault("INDEX_NAME", defaultIndex)
			}

			pipeline, err := ingest.NewPipeline(emb, client, &ingest.Config{
				Index:      index,
				Dimensions: embedder.DefaultDimensions(backend),
				BatchSize:  batchSize,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion", slog.String("index", index), slog.Int("records", len(records)))

			if err := pipeline.Ingest(ctx, records, func(msg string) {
				log.Info(msg)
			}); err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete", slog.String("index", index), slog.Int("records", len(records)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the JSON file of FAQ records (required)")
	cmd.Flags().StringVarP(&index, "index", "i", "", "Target search index (default: INDEX_NAME or faqs)")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Records per embedding batch (default: 64)")

	return cmd
}
