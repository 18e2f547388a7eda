package embedder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestOpenAIEmbedderEmbed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("model = %q", req.Model)
		}
		// Return results out of order to exercise index-based reassembly.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.3, 0.4}, "index": 1},
				{"embedding": []float32{0.1, 0.2}, "index": 0},
			},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "text-embedding-3-small",
	})

	got, err := e.Embed(context.Background(), []string{"how do I enroll", "what is the refund policy"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(got))
	}
	if got[0][0] != 0.1 || got[1][0] != 0.3 {
		t.Errorf("embeddings not reordered by index: %v", got)
	}
}

func TestOpenAIEmbedderAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "bad", Model: "m"})

	_, err := e.Embed(context.Background(), []string{"q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error should carry API message, got %v", err)
	}
}

func TestOpenAIEmbedderCountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1}, "index": 0}},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})

	_, err := e.Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestOllamaEmbedderEmbed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.5, 0.6}},
		})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})

	got, err := e.Embed(context.Background(), []string{"how do I enroll"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 1 || got[0][1] != 0.6 {
		t.Errorf("unexpected embeddings %v", got)
	}
}

func TestNewFromEnvDefaultsToOllama(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "")
	os.Unsetenv("EMBEDDING_PROVIDER")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")

	e, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if _, ok := e.(*OllamaEmbedder); !ok {
		t.Errorf("expected *OllamaEmbedder, got %T", e)
	}
}

func TestNewFromEnvOpenAIRequiresKey(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("EMBEDDING_API_KEY", "")
	os.Unsetenv("EMBEDDING_API_KEY")

	if _, err := NewFromEnv(); err == nil {
		t.Fatal("expected error for openai backend without API key")
	}
}

func TestNewFromEnvUnknownBackend(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "carrier-pigeon")

	if _, err := NewFromEnv(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestDefaultDimensions(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSIONS", "")
	os.Unsetenv("EMBEDDING_DIMENSIONS")

	if got := DefaultDimensions("ollama"); got != 768 {
		t.Errorf("ollama dims = %d, want 768", got)
	}
	if got := DefaultDimensions("openai"); got != 1536 {
		t.Errorf("openai dims = %d, want 1536", got)
	}

	t.Setenv("EMBEDDING_DIMENSIONS", "512")
	if got := DefaultDimensions("ollama"); got != 512 {
		t.Errorf("override dims = %d, want 512", got)
	}
}

func TestValidateWarnsOnChatModel(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "llama3.1")

	var buf strings.Builder
	log := slog.New(slog.NewTextHandler(&buf, nil))

	if err := Validate(log); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(buf.String(), "looks like a chat model") {
		t.Errorf("expected chat-model warning, log output: %s", buf.String())
	}
}

func TestValidateOpenAIMissingKey(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("EMBEDDING_API_KEY", "")
	os.Unsetenv("EMBEDDING_API_KEY")

	log := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	if err := Validate(log); err == nil {
		t.Fatal("expected error for openai backend without API key")
	}
}
