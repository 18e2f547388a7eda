package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mkalyango/faqbot/internal/provider"
)

// fakeChatModel records calls and returns a canned response.
type fakeChatModel struct {
	calls    int
	lastOpts []model.Option
	response *schema.Message
	err      error
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func TestGenerateReturnsAnswerWithUsage(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		response: &schema.Message{
			Role:    schema.Assistant,
			Content: "You can enroll until the course starts.",
			ResponseMeta: &schema.ResponseMeta{
				Usage: &schema.TokenUsage{
					PromptTokens:     120,
					CompletionTokens: 30,
					TotalTokens:      150,
				},
			},
		},
	}
	gen := NewGenerator(provider.NewRegistry(map[provider.Backend]model.BaseChatModel{
		provider.BackendOpenAI: fake,
	}))

	ans, err := gen.Generate(context.Background(), "openai/gpt-3.5-turbo", "QUESTION: can I still enroll?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ans.Text != "You can enroll until the course starts." {
		t.Errorf("answer text = %q", ans.Text)
	}
	if ans.Usage.PromptTokens != 120 || ans.Usage.CompletionTokens != 30 || ans.Usage.TotalTokens != 150 {
		t.Errorf("usage = %+v", ans.Usage)
	}
	if ans.ResponseTime < 0 {
		t.Errorf("response time = %v", ans.ResponseTime)
	}
	if fake.calls != 1 {
		t.Errorf("expected 1 call, got %d", fake.calls)
	}
	if len(fake.lastOpts) == 0 {
		t.Error("expected per-call model option to be passed")
	}
}

func TestGenerateMissingUsage(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		response: schema.AssistantMessage("hello", nil),
	}
	gen := NewGenerator(provider.NewRegistry(map[provider.Backend]model.BaseChatModel{
		provider.BackendOllama: fake,
	}))

	ans, err := gen.Generate(context.Background(), "ollama/llama3", "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ans.Usage.TotalTokens != 0 {
		t.Errorf("expected zero usage when provider reports none, got %+v", ans.Usage)
	}
}

func TestGenerateUnsupportedModelFailsFast(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{response: schema.AssistantMessage("x", nil)}
	gen := NewGenerator(provider.NewRegistry(map[provider.Backend]model.BaseChatModel{
		provider.BackendOpenAI: fake,
	}))

	for _, id := range []string{"gpt-4o", "anthropic/claude-3", "gemini/gemini-1.5-flash"} {
		_, err := gen.Generate(context.Background(), id, "hi")
		if err == nil {
			t.Errorf("Generate(%q): expected error", id)
			continue
		}
		if !errors.Is(err, provider.ErrUnsupportedModel) {
			t.Errorf("Generate(%q): error should wrap ErrUnsupportedModel, got %v", id, err)
		}
	}
	if fake.calls != 0 {
		t.Errorf("no backend call should be made for unsupported models, got %d calls", fake.calls)
	}
}

func TestGenerateBackendError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("rate limited")
	fake := &fakeChatModel{err: wantErr}
	gen := NewGenerator(provider.NewRegistry(map[provider.Backend]model.BaseChatModel{
		provider.BackendOpenAI: fake,
	}))

	_, err := gen.Generate(context.Background(), "openai/gpt-4o", "hi")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}
