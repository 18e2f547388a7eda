package pricing

import (
	"strings"
	"testing"
)

func Test_EstimateCost_KnownModel(t *testing.T) {
	t.Parallel()
	got := EstimateCost("openai/gpt-3.5-turbo", 1000, 1000)
	want := (1000*0.0015 + 1000*0.002) / 1000 // 0.0035
	if got != want {
		t.Errorf("EstimateCost = %v, want %v", got, want)
	}
}

func Test_EstimateCost_UnknownModelIsFree(t *testing.T) {
	t.Parallel()
	cases := []struct {
		model              string
		prompt, completion int
	}{
		{"ollama/llama3", 1000, 1000},
		{"openai/gpt-5-nano", 50000, 50000},
		{"", 10, 10},
		{"not-a-model", 0, 0},
	}
	for _, tc := range cases {
		if got := EstimateCost(tc.model, tc.prompt, tc.completion); got != 0.0 {
			t.Errorf("EstimateCost(%q, %d, %d) = %v, want 0.0",
				tc.model, tc.prompt, tc.completion, got)
		}
	}
}

func Test_EstimateCost_MonotonicInCompletionTokens(t *testing.T) {
	t.Parallel()
	prev := -1.0
	for completion := 0; completion <= 5000; completion += 500 {
		got := EstimateCost("openai/gpt-4o", 1200, completion)
		if got < prev {
			t.Fatalf("cost decreased at completion=%d: %v < %v", completion, got, prev)
		}
		prev = got
	}
}

func Test_EstimateCost_ZeroTokens(t *testing.T) {
	t.Parallel()
	if got := EstimateCost("openai/gpt-3.5-turbo", 0, 0); got != 0.0 {
		t.Errorf("zero tokens should cost 0.0, got %v", got)
	}
}

func Test_Known(t *testing.T) {
	t.Parallel()
	if !Known("openai/gpt-4o-mini") {
		t.Error("gpt-4o-mini should be a known model")
	}
	if Known("ollama/llama3") {
		t.Error("ollama models should not be in the rate table")
	}
}

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		if got := Estimate(tc.input); got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}
