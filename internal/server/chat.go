package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mkalyango/faqbot/internal/logging"
	"github.com/mkalyango/faqbot/internal/rag"
	"github.com/mkalyango/faqbot/internal/store"
)

// opaqueErrMsg is the only failure text clients ever see from POST /api/chat.
// The real error is logged server-side; exposing provider or index failures
// to callers would leak infrastructure detail.
const opaqueErrMsg = "An error occurred while processing your request."

// handleChat handles POST /api/chat. It validates the request, applies the
// configured defaults, runs the pipeline, persists the conversation, and
// returns the answer with its quality and cost metadata.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	modelID := req.ModelChoice
	if modelID == "" {
		modelID = s.cfg.DefaultModel
	}

	strategyName := req.SearchType
	if strategyName == "" {
		strategyName = string(s.cfg.DefaultStrategy)
	}
	strategy, err := rag.ParseStrategy(strategyName)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid search_type %q: valid values are text, vector, hybrid", strategyName))
		return
	}
	if !s.pipeline.Supports(strategy) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("search_type %q is not supported by the configured search backend", strategyName))
		return
	}

	result, err := s.pipeline.Answer(r.Context(), &rag.Request{
		Query:    req.Message,
		ModelID:  modelID,
		Strategy: strategy,
		Index:    s.cfg.Index,
	})
	if err != nil {
		log.Error("chat: pipeline failed", slog.Any("error", err))
		s.metrics.chatRequestsTotal.WithLabelValues("error").Inc()
		s.metrics.chatDurationSeconds.WithLabelValues("error").Observe(time.Since(start).Seconds())
		writeError(w, http.StatusInternalServerError, opaqueErrMsg)
		return
	}

	conversationID := uuid.NewString()

	if s.store != nil {
		conv := &store.Conversation{
			ID:                   conversationID,
			Question:             req.Message,
			Answer:               result.Answer,
			Section:              s.cfg.Section,
			ModelUsed:            result.ModelUsed,
			ResponseTime:         result.ResponseTime.Seconds(),
			Relevance:            string(result.Relevance),
			RelevanceExplanation: result.RelevanceExplanation,
			PromptTokens:         result.Usage.PromptTokens,
			CompletionTokens:     result.Usage.CompletionTokens,
			TotalTokens:          result.Usage.TotalTokens,
			EvalPromptTokens:     result.EvalUsage.PromptTokens,
			EvalCompletionTokens: result.EvalUsage.CompletionTokens,
			EvalTotalTokens:      result.EvalUsage.TotalTokens,
			Cost:                 result.Cost,
		}
		// Persistence is best-effort: the user already has their answer.
		if err := s.store.SaveConversation(r.Context(), conv); err != nil {
			log.Warn("chat: failed to persist conversation", slog.Any("error", err))
		}
	}

	elapsed := time.Since(start)
	s.metrics.chatRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.chatDurationSeconds.WithLabelValues("ok").Observe(elapsed.Seconds())
	s.metrics.chatRelevanceTotal.WithLabelValues(string(result.Relevance)).Inc()
	s.metrics.chatCostDollarsTotal.Add(result.Cost)

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: conversationID,
		Answer:         result.Answer,
		Relevance:      string(result.Relevance),
		ResponseTime:   result.ResponseTime.Seconds(),
		Cost:           result.Cost,
		ElapsedTime:    elapsed.Seconds(),
	})
}

// handleConversations handles GET /api/conversations. Supports ?limit= and
// ?relevance= query parameters.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	st := s.requireStore(w)
	if st == nil {
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	relevance := r.URL.Query().Get("relevance")
	if relevance != "" && !rag.ValidRelevance(rag.Relevance(relevance)) {
		writeError(w, http.StatusBadRequest, "relevance must be one of RELEVANT, PARTLY_RELEVANT, NON_RELEVANT, UNKNOWN")
		return
	}

	convs, err := st.Recent(r.Context(), limit, relevance)
	if err != nil {
		logging.FromContext(r.Context()).Error("conversations: query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, opaqueErrMsg)
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// handleConversation handles GET /api/conversations/{id}.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	st := s.requireStore(w)
	if st == nil {
		return
	}

	conv, err := st.Conversation(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("conversation: query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, opaqueErrMsg)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// handleConversationDelete handles DELETE /api/conversations/{id}.
func (s *Server) handleConversationDelete(w http.ResponseWriter, r *http.Request) {
	st := s.requireStore(w)
	if st == nil {
		return
	}

	err := st.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("conversation delete failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, opaqueErrMsg)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleFeedback handles POST /api/feedback.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	st := s.requireStore(w)
	if st == nil {
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}
	if req.Feedback != 1 && req.Feedback != -1 {
		writeError(w, http.StatusBadRequest, "feedback must be 1 or -1")
		return
	}

	err := st.SaveFeedback(r.Context(), req.ConversationID, req.Feedback)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("feedback: save failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, opaqueErrMsg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// handleStats handles GET /api/feedback/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.requireStore(w)
	if st == nil {
		return
	}

	stats, err := st.FeedbackStats(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("stats: query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, opaqueErrMsg)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
