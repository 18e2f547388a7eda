// Package llm implements the rag.Generator interface on top of the provider
// registry. A single Generator serves every configured backend; the model
// identifier on each call selects the backend and the concrete model.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mkalyango/faqbot/internal/logging"
	"github.com/mkalyango/faqbot/internal/pricing"
	"github.com/mkalyango/faqbot/internal/provider"
	"github.com/mkalyango/faqbot/internal/rag"
)

// Generator routes generation calls to the provider registry and normalises
// the response into a rag.Answer. It is safe for concurrent use.
type Generator struct {
	registry *provider.Registry
}

// NewGenerator constructs a Generator over the given registry.
func NewGenerator(registry *provider.Registry) *Generator {
	return &Generator{registry: registry}
}

// Generate sends the prompt to the backend named by modelID and returns the
// completed answer with token usage and wall-clock latency. An unknown or
// unconfigured model fails before any network call is made.
func (g *Generator) Generate(ctx context.Context, modelID, prompt string) (*rag.Answer, error) {
	backend, name, err := provider.ParseModelID(modelID)
	if err != nil {
		return nil, err
	}
	cm, err := g.registry.Lookup(backend)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("llm: generating",
		slog.String("model", modelID),
		slog.Int("prompt_tokens_estimate", pricing.Estimate(prompt)),
	)

	start := time.Now()
	msg, err := cm.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.WithModel(name),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: generate with %s: %w", modelID, err)
	}
	elapsed := time.Since(start)

	answer := &rag.Answer{
		Text:         msg.Content,
		ResponseTime: elapsed,
	}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		answer.Usage = rag.TokenUsage{
			PromptTokens:     msg.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: msg.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      msg.ResponseMeta.Usage.TotalTokens,
		}
	}

	return answer, nil
}
