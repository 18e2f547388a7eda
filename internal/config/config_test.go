package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.NewFile(0, os.DevNull), &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoadMissingFile(t *testing.T) {
	path, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), discardLogger())
	if err != nil {
		t.Fatalf("Load with missing explicit path should not error, got %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path for missing file, got %q", path)
	}
}

func TestLoadAppliesYAMLValues(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "faqbot.yaml")
	yaml := `
search:
  backend: elasticsearch
  index: faq-questions
  elastic:
    url: http://localhost:9200
pipeline:
  default_model: openai/gpt-3.5-turbo
  default_search_type: hybrid
model:
  max_tokens: 2048
  temperature: 0.25
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"SEARCH_BACKEND", "INDEX_NAME", "ELASTIC_URL", "DEFAULT_MODEL", "DEFAULT_SEARCH_TYPE", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path, err := Load(cfgPath, discardLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != cfgPath {
		t.Errorf("expected loaded path %q, got %q", cfgPath, path)
	}

	want := map[string]string{
		"SEARCH_BACKEND":      "elasticsearch",
		"INDEX_NAME":          "faq-questions",
		"ELASTIC_URL":         "http://localhost:9200",
		"DEFAULT_MODEL":       "openai/gpt-3.5-turbo",
		"DEFAULT_SEARCH_TYPE": "hybrid",
		"MODEL_MAX_TOKENS":    "2048",
		"MODEL_TEMPERATURE":   "0.25",
	}
	for key, val := range want {
		if got := os.Getenv(key); got != val {
			t.Errorf("env %s = %q, want %q", key, got, val)
		}
	}
}

func TestLoadEnvWins(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "faqbot.yaml")
	yaml := "search:\n  backend: qdrant\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SEARCH_BACKEND", "elasticsearch")

	if _, err := Load(cfgPath, discardLogger()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := os.Getenv("SEARCH_BACKEND"); got != "elasticsearch" {
		t.Errorf("env var should win over YAML, got %q", got)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(cfgPath, []byte("search: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgPath, discardLogger()); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestResolveConfigPathEnvVar(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(cfgPath, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FAQBOT_CONFIG", cfgPath)
	t.Setenv("HOME", t.TempDir()) // avoid picking up a real ~/.faqbot/config.yaml

	if got := resolveConfigPath(""); got != cfgPath {
		t.Errorf("resolveConfigPath = %q, want %q", got, cfgPath)
	}
}

func TestHelpers(t *testing.T) {
	if got := intStr(0); got != "" {
		t.Errorf("intStr(0) = %q, want empty", got)
	}
	if got := intStr(42); got != "42" {
		t.Errorf("intStr(42) = %q", got)
	}
	if got := float32Str(0); got != "" {
		t.Errorf("float32Str(0) = %q, want empty", got)
	}
	if got := float32Str(0.5); got != "0.5" {
		t.Errorf("float32Str(0.5) = %q", got)
	}
	if got := boolStr(false); got != "" {
		t.Errorf("boolStr(false) = %q, want empty", got)
	}
	if got := boolStr(true); got != "true" {
		t.Errorf("boolStr(true) = %q", got)
	}
}
