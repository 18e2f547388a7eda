package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/cloudwego/eino/components/model"
)

// Registry holds one constructed ChatModel per configured backend. Lookups
// are read-only after construction, so the registry is safe for concurrent
// use.
type Registry struct {
	backends map[Backend]model.BaseChatModel
}

// Lookup returns the ChatModel for the given backend, or ErrUnsupportedModel
// if the backend is not configured.
func (r *Registry) Lookup(backend Backend) (model.BaseChatModel, error) {
	cm, ok := r.backends[backend]
	if !ok {
		return nil, fmt.Errorf("%w: backend %q is not configured", ErrUnsupportedModel, backend)
	}
	return cm, nil
}

// Backends returns the names of all configured backends.
func (r *Registry) Backends() []Backend {
	names := make([]Backend, 0, len(r.backends))
	for b := range r.backends {
		names = append(names, b)
	}
	return names
}

// NewRegistry constructs a Registry from an explicit backend map. Intended
// for tests; production code uses NewRegistryFromEnv.
func NewRegistry(backends map[Backend]model.BaseChatModel) *Registry {
	return &Registry{backends: backends}
}

// NewRegistryFromEnv constructs a Registry containing every backend whose
// credentials are present in the environment. At least one backend must be
// configurable or an error is returned.
//
// Environment variables:
//
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-3.5-turbo)
//	Ollama:  OLLAMA_HOST (enables the backend; default model via OLLAMA_MODEL, default: llama3)
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-1.5-flash)
//	Ark:     ARK_API_KEY, ARK_MODEL
//
//	Shared:  MODEL_MAX_TOKENS (default: 4096), MODEL_TEMPERATURE (default: 0.2)
func NewRegistryFromEnv(ctx context.Context) (*Registry, error) {
	tuning := Tuning{
		MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 4096),
		Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.2),
	}

	backends := make(map[Backend]model.BaseChatModel)

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cm, err := newOpenAI(ctx, apiKey, getEnvOrDefault("OPENAI_MODEL", "gpt-3.5-turbo"), tuning)
		if err != nil {
			return nil, fmt.Errorf("provider: openai backend: %w", err)
		}
		backends[BackendOpenAI] = cm
	}

	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cm, err := newOllama(ctx, host, getEnvOrDefault("OLLAMA_MODEL", "llama3"))
		if err != nil {
			return nil, fmt.Errorf("provider: ollama backend: %w", err)
		}
		backends[BackendOllama] = cm
	}

	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		cm, err := newGemini(ctx, apiKey, getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"))
		if err != nil {
			return nil, fmt.Errorf("provider: gemini backend: %w", err)
		}
		backends[BackendGemini] = cm
	}

	if apiKey := os.Getenv("ARK_API_KEY"); apiKey != "" {
		cm, err := newArk(ctx, apiKey, os.Getenv("ARK_MODEL"), tuning)
		if err != nil {
			return nil, fmt.Errorf("provider: ark backend: %w", err)
		}
		backends[BackendArk] = cm
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("provider: no LLM backend configured — set OPENAI_API_KEY, OLLAMA_HOST, GOOGLE_API_KEY, or ARK_API_KEY")
	}

	return &Registry{backends: backends}, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
