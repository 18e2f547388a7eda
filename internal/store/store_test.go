package store

import (
	"context"
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleConversation(id string) *Conversation {
	return &Conversation{
		ID:                   id,
		Question:             "Can I still join the course?",
		Answer:               "Yes, enrollment stays open until the start date.",
		Section:              "Course FAQs",
		ModelUsed:            "openai/gpt-3.5-turbo",
		ResponseTime:         1.25,
		Relevance:            "RELEVANT",
		RelevanceExplanation: "The answer addresses the question directly.",
		PromptTokens:         150,
		CompletionTokens:     40,
		TotalTokens:          190,
		EvalPromptTokens:     80,
		EvalCompletionTokens: 25,
		EvalTotalTokens:      105,
		Cost:                 0.000305,
	}
}

func TestSaveAndGetConversation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	want := sampleConversation("conv-1")
	if err := s.SaveConversation(ctx, want); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}

	got, err := s.Conversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if got.Question != want.Question || got.Answer != want.Answer || got.Section != want.Section {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Relevance != "RELEVANT" || got.Cost != 0.000305 {
		t.Errorf("metadata mismatch: %+v", got)
	}
	if got.EvalTotalTokens != 105 {
		t.Errorf("eval tokens = %d, want 105", got.EvalTotalTokens)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set by the store")
	}
}

func TestConversationNotFound(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.Conversation(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecentOrderingAndFilter(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i, rel := range []string{"RELEVANT", "NON_RELEVANT", "RELEVANT"} {
		c := sampleConversation("conv-" + string(rune('a'+i)))
		c.Relevance = rel
		if err := s.SaveConversation(ctx, c); err != nil {
			t.Fatalf("SaveConversation: %v", err)
		}
	}

	all, err := s.Recent(ctx, 10, "")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(all))
	}
	// Newest first: same-second inserts fall back to rowid ordering.
	if all[0].ID != "conv-c" {
		t.Errorf("first conversation = %s, want conv-c", all[0].ID)
	}

	relevant, err := s.Recent(ctx, 10, "RELEVANT")
	if err != nil {
		t.Fatalf("Recent(filtered): %v", err)
	}
	if len(relevant) != 2 {
		t.Errorf("expected 2 RELEVANT conversations, got %d", len(relevant))
	}
	for _, c := range relevant {
		if c.Relevance != "RELEVANT" {
			t.Errorf("filter leaked %s", c.Relevance)
		}
	}

	limited, err := s.Recent(ctx, 1, "")
	if err != nil {
		t.Fatalf("Recent(limit): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 conversation with limit 1, got %d", len(limited))
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveConversation(ctx, sampleConversation("conv-1")); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}

	if err := s.SaveFeedback(ctx, "conv-1", 1); err != nil {
		t.Fatalf("SaveFeedback(+1): %v", err)
	}
	if err := s.SaveFeedback(ctx, "conv-1", -1); err != nil {
		t.Fatalf("SaveFeedback(-1): %v", err)
	}
	if err := s.SaveFeedback(ctx, "conv-1", 1); err != nil {
		t.Fatalf("SaveFeedback(+1): %v", err)
	}

	stats, err := s.FeedbackStats(ctx)
	if err != nil {
		t.Fatalf("FeedbackStats: %v", err)
	}
	if stats.ThumbsUp != 2 || stats.ThumbsDown != 1 {
		t.Errorf("stats = %+v, want 2 up / 1 down", stats)
	}
}

func TestFeedbackValidation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveConversation(ctx, sampleConversation("conv-1")); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}

	if err := s.SaveFeedback(ctx, "conv-1", 0); err == nil {
		t.Error("feedback 0 should be rejected")
	}
	if err := s.SaveFeedback(ctx, "conv-1", 5); err == nil {
		t.Error("feedback 5 should be rejected")
	}
	if err := s.SaveFeedback(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("feedback for missing conversation: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCascadesFeedback(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveConversation(ctx, sampleConversation("conv-1")); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}
	if err := s.SaveFeedback(ctx, "conv-1", 1); err != nil {
		t.Fatalf("SaveFeedback: %v", err)
	}

	if err := s.Delete(ctx, "conv-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Conversation(ctx, "conv-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted conversation should be gone, got %v", err)
	}

	stats, err := s.FeedbackStats(ctx)
	if err != nil {
		t.Fatalf("FeedbackStats: %v", err)
	}
	if stats.ThumbsUp != 0 {
		t.Errorf("feedback should cascade on delete, stats = %+v", stats)
	}

	if err := s.Delete(ctx, "conv-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: expected ErrNotFound, got %v", err)
	}
}
