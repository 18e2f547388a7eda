package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkalyango/faqbot/internal/logging"
	"github.com/mkalyango/faqbot/internal/rag"
)

// NewAskCmd constructs the `faqbot ask` command, which runs the answer
// pipeline for a single question and prints the result to stdout.
func NewAskCmd() *cobra.Command {
	var modelID string
	var searchType string
	var index string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the FAQ assistant a question",
		Long: `Ask the FAQ assistant a single question from the command line.

The question is answered with the same retrieve-generate-evaluate pipeline
the HTTP server uses: search the FAQ index, build a grounded prompt from
the best matches, generate an answer, and print it with the evaluator's
relevance verdict and estimated cost.

Examples:
  faqbot ask "can I still join the course?"
  faqbot ask --model ollama/phi3 --search-type text "when are office hours?"
  SEARCH_BACKEND=qdrant faqbot ask --search-type vector "is the homework graded?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			client, closeClient, err := buildSearchClient()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeClient()

			pipeline, err := buildPipeline(ctx, client)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			if modelID == "" {
				modelID = getEnvOrDefault("DEFAULT_MODEL", "openai/gpt-3.5-turbo")
			}
			if searchType == "" {
				searchType = getEnvOrDefault("DEFAULT_SEARCH_TYPE", string(rag.StrategyHybrid))
			}
			strategy, err := rag.ParseStrategy(searchType)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			if !pipeline.Supports(strategy) {
				return fmt.Errorf("ask: search backend does not support the %q strategy", strategy)
			}
			if index == "" {
				index = getEnvOrDefault("INDEX_NAME", defaultIndex)
			}

			result, err := pipeline.Answer(ctx, &rag.Request{
				Query:    args[0],
				ModelID:  modelID,
				Strategy: strategy,
				Index:    index,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(result.Answer)
			fmt.Fprintf(os.Stderr, "\nmodel=%s relevance=%s cost=$%.6f response_time=%.2fs tokens=%d\n",
				result.ModelUsed, result.Relevance, result.Cost,
				result.ResponseTime.Seconds(), result.Usage.TotalTokens)
			if result.Degraded {
				fmt.Fprintln(os.Stderr, "warning: retrieval failed, answer generated without FAQ context")
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&modelID, "model", "m", "", "Generation model as backend/name (default: DEFAULT_MODEL or openai/gpt-3.5-turbo)")
	cmd.Flags().StringVarP(&searchType, "search-type", "s", "", "Retrieval strategy: text, vector, hybrid (default: DEFAULT_SEARCH_TYPE or hybrid)")
	cmd.Flags().StringVarP(&index, "index", "i", "", "Search index to query (default: INDEX_NAME or faqs)")

	return cmd
}
