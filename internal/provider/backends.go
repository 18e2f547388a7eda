package provider

import (
	"context"
	"fmt"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// Tuning holds generation parameters shared by all backends.
type Tuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// newOpenAI constructs a ChatModel backed by the OpenAI API. The model name
// given here is only a default; each request overrides it via
// model.WithModel.
func newOpenAI(ctx context.Context, apiKey, defaultModel string, tuning Tuning) (model.BaseChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("provider: OPENAI_API_KEY is required for openai backend")
	}
	v, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       defaultModel,
		APIKey:      apiKey,
		MaxTokens:   &tuning.MaxTokens,
		Temperature: &tuning.Temperature,
	})
	return v, err
}

// newOllama constructs a ChatModel backed by a local Ollama instance.
func newOllama(ctx context.Context, host, defaultModel string) (model.BaseChatModel, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	v, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		BaseURL: host,
		Model:   defaultModel,
	})
	return v, err
}

// newGemini constructs a ChatModel backed by Google Gemini (AI Studio).
func newGemini(ctx context.Context, apiKey, defaultModel string) (model.BaseChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("provider: GOOGLE_API_KEY is required for gemini backend")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
	}
	return einogemini.NewChatModel(ctx, &einogemini.Config{ //nolint:wrapcheck // constructor passthrough
		Client: client,
		Model:  defaultModel,
	})
}

// newArk constructs a ChatModel backed by Volcano Engine Ark.
func newArk(ctx context.Context, apiKey, defaultModel string, tuning Tuning) (model.BaseChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("provider: ARK_API_KEY is required for ark backend")
	}
	maxTokens := tuning.MaxTokens
	temp := tuning.Temperature
	return einoark.NewChatModel(ctx, &einoark.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       defaultModel,
		APIKey:      apiKey,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
}
