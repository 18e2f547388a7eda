// Package provider constructs and registers the LLM chat model backends used
// by the answer pipeline. Model identifiers take the form "provider/model"
// (e.g. "openai/gpt-3.5-turbo"); the provider prefix routes the request to
// the matching backend, and the model suffix is applied per call.
// Supported backends: OpenAI, Ollama, Google Gemini, Volcano Engine Ark.
package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendArk selects Volcano Engine Ark.
	BackendArk Backend = "ark"
)

// ErrUnsupportedModel is returned when a model identifier names a backend
// that is unknown or not configured. Callers should fail the request without
// making any network call.
var ErrUnsupportedModel = errors.New("provider: unsupported model")

// ParseModelID splits a "provider/model" identifier into its backend and
// model name. The model name may itself contain slashes (some Ollama tags
// do), so only the first separator is significant.
func ParseModelID(id string) (Backend, string, error) {
	backend, name, found := strings.Cut(id, "/")
	if !found || backend == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q is not of the form provider/model", ErrUnsupportedModel, id)
	}
	switch Backend(backend) {
	case BackendOpenAI, BackendOllama, BackendGemini, BackendArk:
		return Backend(backend), name, nil
	default:
		return "", "", fmt.Errorf("%w: unknown provider %q in %q", ErrUnsupportedModel, backend, id)
	}
}
