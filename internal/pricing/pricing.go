// Package pricing maps model identity and token usage to a monetary cost
// estimate via a static per-model rate table, and provides a rough
// character-based token estimator for pre-flight logging. Because faqbot
// supports multiple LLM backends with different tokenizers, the estimator
// uses a conservative heuristic: 1 token ≈ 4 characters.
package pricing

// charsPerToken is the conservative character-to-token ratio used by
// Estimate. 4 chars/token is standard for English prose.
const charsPerToken = 4

// Rate is the price per 1000 tokens for one model, split by direction.
type Rate struct {
	// PromptPer1K is the USD price per 1000 prompt tokens.
	PromptPer1K float64

	// CompletionPer1K is the USD price per 1000 completion tokens.
	CompletionPer1K float64
}

// rates is the static rate table keyed by provider-prefixed model identifier.
// Models absent from the table estimate to zero cost — locally hosted models
// (ollama) have no per-token price, and cost accounting must never block
// answer delivery.
var rates = map[string]Rate{
	"openai/gpt-3.5-turbo": {PromptPer1K: 0.0015, CompletionPer1K: 0.002},
	"openai/gpt-4o":        {PromptPer1K: 0.03, CompletionPer1K: 0.06},
	"openai/gpt-4o-mini":   {PromptPer1K: 0.03, CompletionPer1K: 0.06},
}

// EstimateCost returns the estimated USD cost of one model invocation.
// Unknown model identifiers yield exactly 0.0 — never an error.
func EstimateCost(modelID string, promptTokens, completionTokens int) float64 {
	rate, ok := rates[modelID]
	if !ok {
		return 0.0
	}
	return (float64(promptTokens)*rate.PromptPer1K +
		float64(completionTokens)*rate.CompletionPer1K) / 1000
}

// Known reports whether the model identifier has an entry in the rate table.
func Known(modelID string) bool {
	_, ok := rates[modelID]
	return ok
}

// Estimate returns a rough token count for s using the character heuristic.
// Used for debug logging of projected prompt sizes before a generation call.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}
