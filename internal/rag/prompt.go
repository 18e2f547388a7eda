package rag

import (
	"fmt"
	"strings"
)

// promptTemplate is the fixed instruction template for answer generation.
// The model is told to ground its answer exclusively in the supplied context;
// when retrieval produced nothing the CONTEXT block is simply empty and the
// model is still invoked.
const promptTemplate = `You're an expert support assistant. Answer the QUESTION based on the CONTEXT from the FAQ database.
Use only the facts from the CONTEXT when answering the QUESTION.

QUESTION: %s

CONTEXT:
%s`

// BuildPrompt renders the query and retrieved passages into a single
// instruction prompt. It is a pure function: identical inputs always yield
// byte-identical output, and it never fails.
func BuildPrompt(query string, passages []Passage) string {
	entries := make([]string, 0, len(passages))
	for _, p := range passages {
		entries = append(entries, fmt.Sprintf("section: %s\nquestion: %s\nanswer: %s",
			p.Section, p.Question, p.Answer))
	}
	context := strings.Join(entries, "\n\n")

	return strings.TrimSpace(fmt.Sprintf(promptTemplate, query, context))
}
