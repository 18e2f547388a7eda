package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mkalyango/faqbot/internal/logging"
)

// Relevance classifies how well a generated answer addresses its question.
type Relevance string

const (
	// RelevanceRelevant means the answer fully addresses the question.
	RelevanceRelevant Relevance = "RELEVANT"

	// RelevancePartly means the answer addresses the question only in part.
	RelevancePartly Relevance = "PARTLY_RELEVANT"

	// RelevanceNone means the answer does not address the question.
	RelevanceNone Relevance = "NON_RELEVANT"

	// RelevanceUnknown is the fallback when the evaluation model's output
	// could not be parsed or the evaluation call itself failed.
	RelevanceUnknown Relevance = "UNKNOWN"
)

// Verdict is the outcome of one relevance evaluation. Evaluation is an
// auxiliary quality signal, never the deliverable, so a Verdict always
// exists — degraded evaluations surface as RelevanceUnknown, not errors.
type Verdict struct {
	// Relevance is the classification label.
	Relevance Relevance

	// Explanation is the model's free-text justification.
	Explanation string

	// Usage is the token usage consumed by the evaluation call. It is
	// preserved even when parsing failed: the call cost was incurred and
	// must be accounted for.
	Usage TokenUsage
}

// DefaultEvalModel is the model used for relevance evaluation. Evaluation
// deliberately does not track the caller's generation model: a fixed
// evaluator keeps relevance labels comparable across conversations that used
// different generation models.
const DefaultEvalModel = "openai/gpt-4o-mini"

// evalPromptTemplate is the fixed rubric prompt. It demands a bare JSON
// object so the verdict can be parsed strictly.
const evalPromptTemplate = `You are an expert evaluator for a Retrieval-Augmented Generation (RAG) system.
Your task is to analyze the relevance of the generated answer to the given question.
Based on the relevance of the generated answer, you will classify it
as "NON_RELEVANT", "PARTLY_RELEVANT", or "RELEVANT".

Here is the data for evaluation:

Question: %s
Generated Answer: %s

Please analyze the content and context of the generated answer in relation to the question
and provide your evaluation in parsable JSON without using code blocks:

{
  "Relevance": "NON_RELEVANT" | "PARTLY_RELEVANT" | "RELEVANT",
  "Explanation": "[Provide a brief explanation for your evaluation]"
}`

// Evaluator re-invokes the language model with a fixed rubric to classify a
// generated answer's relevance to its question.
type Evaluator struct {
	// gen is the generator used for the evaluation call.
	gen Generator

	// model is the provider-prefixed model identifier for evaluation.
	model string
}

// NewEvaluator constructs an Evaluator over the given Generator.
// model selects the evaluation model; empty falls back to DefaultEvalModel.
func NewEvaluator(gen Generator, model string) *Evaluator {
	if model == "" {
		model = DefaultEvalModel
	}
	return &Evaluator{gen: gen, model: model}
}

// Model returns the provider-prefixed evaluation model identifier.
func (e *Evaluator) Model() string { return e.model }

// evalVerdict is the JSON shape the evaluation model is instructed to emit.
type evalVerdict struct {
	Relevance   string `json:"Relevance"`
	Explanation string `json:"Explanation"`
}

// Evaluate classifies the answer's relevance to the question. It never fails:
// an unreachable evaluation model or unparseable output degrades to a
// RelevanceUnknown verdict, with the actually-consumed token usage preserved.
func (e *Evaluator) Evaluate(ctx context.Context, question, answer string) Verdict {
	prompt := fmt.Sprintf(evalPromptTemplate, question, answer)

	resp, err := e.gen.Generate(ctx, e.model, prompt)
	if err != nil {
		logging.FromContext(ctx).Warn("rag: evaluation call failed, recording UNKNOWN relevance",
			slog.String("model", e.model),
			slog.Any("error", err),
		)
		return Verdict{
			Relevance:   RelevanceUnknown,
			Explanation: "Evaluation call failed",
		}
	}

	var v evalVerdict
	if err := json.Unmarshal([]byte(resp.Text), &v); err != nil || !validRelevance(v.Relevance) {
		logging.FromContext(ctx).Warn("rag: could not parse evaluation output, recording UNKNOWN relevance",
			slog.String("model", e.model),
			slog.Any("error", err),
		)
		return Verdict{
			Relevance:   RelevanceUnknown,
			Explanation: "Failed to parse evaluation",
			Usage:       resp.Usage,
		}
	}

	return Verdict{
		Relevance:   Relevance(v.Relevance),
		Explanation: v.Explanation,
		Usage:       resp.Usage,
	}
}

// ValidRelevance reports whether r is one of the four relevance labels a
// stored conversation can carry, UNKNOWN included.
func ValidRelevance(r Relevance) bool {
	return r == RelevanceUnknown || validRelevance(string(r))
}

// validRelevance reports whether label is one of the three closed verdict
// labels the rubric allows. UNKNOWN is reserved for the fallback path and is
// not a valid model output.
func validRelevance(label string) bool {
	switch Relevance(label) {
	case RelevanceRelevant, RelevancePartly, RelevanceNone:
		return true
	default:
		return false
	}
}
