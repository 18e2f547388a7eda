// Package store provides a SQLite-backed record of answered questions and
// user feedback. Every completed pipeline run is persisted as a conversation
// so answers can be reviewed later; feedback rows reference conversations and
// feed the quality stats endpoint.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrNotFound is returned when a conversation ID does not exist.
var ErrNotFound = errors.New("store: conversation not found")

// Conversation is one persisted pipeline run.
type Conversation struct {
	// ID is the caller-assigned conversation identifier (a UUID).
	ID string `json:"id"`
	// Question is the user's question.
	Question string `json:"question"`
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Section labels the FAQ corpus the answer was grounded on.
	Section string `json:"section"`
	// ModelUsed is the generation model identifier.
	ModelUsed string `json:"model_used"`
	// ResponseTime is the generation latency in seconds.
	ResponseTime float64 `json:"response_time"`
	// Relevance is the evaluator's verdict label.
	Relevance string `json:"relevance"`
	// RelevanceExplanation is the evaluator's justification.
	RelevanceExplanation string `json:"relevance_explanation"`
	// PromptTokens is the generation call's input token count.
	PromptTokens int `json:"prompt_tokens"`
	// CompletionTokens is the generation call's output token count.
	CompletionTokens int `json:"completion_tokens"`
	// TotalTokens is the generation call's total token count.
	TotalTokens int `json:"total_tokens"`
	// EvalPromptTokens is the evaluation call's input token count.
	EvalPromptTokens int `json:"eval_prompt_tokens"`
	// EvalCompletionTokens is the evaluation call's output token count.
	EvalCompletionTokens int `json:"eval_completion_tokens"`
	// EvalTotalTokens is the evaluation call's total token count.
	EvalTotalTokens int `json:"eval_total_tokens"`
	// Cost is the estimated generation cost in USD.
	Cost float64 `json:"cost"`
	// CreatedAt is when the conversation was persisted.
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackStats aggregates thumbs-up/down counts across all feedback rows.
type FeedbackStats struct {
	// ThumbsUp is the number of +1 feedback entries.
	ThumbsUp int `json:"thumbs_up"`
	// ThumbsDown is the number of -1 feedback entries.
	ThumbsDown int `json:"thumbs_down"`
}

// SQLiteStore persists conversations and feedback in a local SQLite database.
// Safe for concurrent use.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the conversation database.
// It resolves to ~/.faqbot/faqbot.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".faqbot")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "faqbot.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS conversations (
    id                     TEXT    PRIMARY KEY,
    question               TEXT    NOT NULL,
    answer                 TEXT    NOT NULL,
    section                TEXT    NOT NULL DEFAULT '',
    model_used             TEXT    NOT NULL,
    response_time          REAL    NOT NULL,
    relevance              TEXT    NOT NULL,
    relevance_explanation  TEXT    NOT NULL,
    prompt_tokens          INTEGER NOT NULL,
    completion_tokens      INTEGER NOT NULL,
    total_tokens           INTEGER NOT NULL,
    eval_prompt_tokens     INTEGER NOT NULL,
    eval_completion_tokens INTEGER NOT NULL,
    eval_total_tokens      INTEGER NOT NULL,
    cost                   REAL    NOT NULL,
    created_at             INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_conversations_created
    ON conversations (created_at);
CREATE TABLE IF NOT EXISTS feedback (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT    NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    feedback        INTEGER NOT NULL CHECK(feedback IN (-1, 1)),
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_conversation
    ON feedback (conversation_id);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SaveConversation persists one completed pipeline run. The CreatedAt field
// is set by the store.
func (s *SQLiteStore) SaveConversation(ctx context.Context, c *Conversation) error {
	const q = `
INSERT INTO conversations (
    id, question, answer, section, model_used, response_time,
    relevance, relevance_explanation,
    prompt_tokens, completion_tokens, total_tokens,
    eval_prompt_tokens, eval_completion_tokens, eval_total_tokens,
    cost, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		c.ID, c.Question, c.Answer, c.Section, c.ModelUsed, c.ResponseTime,
		c.Relevance, c.RelevanceExplanation,
		c.PromptTokens, c.CompletionTokens, c.TotalTokens,
		c.EvalPromptTokens, c.EvalCompletionTokens, c.EvalTotalTokens,
		c.Cost, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: save conversation: %w", err)
	}
	return nil
}

const conversationColumns = `
    id, question, answer, section, model_used, response_time,
    relevance, relevance_explanation,
    prompt_tokens, completion_tokens, total_tokens,
    eval_prompt_tokens, eval_completion_tokens, eval_total_tokens,
    cost, created_at`

// scanConversation reads one row into a Conversation.
func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	var c Conversation
	var ts int64
	err := row.Scan(
		&c.ID, &c.Question, &c.Answer, &c.Section, &c.ModelUsed, &c.ResponseTime,
		&c.Relevance, &c.RelevanceExplanation,
		&c.PromptTokens, &c.CompletionTokens, &c.TotalTokens,
		&c.EvalPromptTokens, &c.EvalCompletionTokens, &c.EvalTotalTokens,
		&c.Cost, &ts,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(ts, 0)
	return &c, nil
}

// Conversation returns a single conversation by ID, or ErrNotFound.
func (s *SQLiteStore) Conversation(ctx context.Context, id string) (*Conversation, error) {
	q := `SELECT` + conversationColumns + ` FROM conversations WHERE id = ?`
	c, err := scanConversation(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get conversation: %w", err)
	}
	return c, nil
}

// Recent returns the most recent conversations, newest-first, optionally
// filtered by relevance label. An empty relevance returns all.
func (s *SQLiteStore) Recent(ctx context.Context, limit int, relevance string) ([]Conversation, error) {
	if limit <= 0 {
		limit = 10
	}

	q := `SELECT` + conversationColumns + ` FROM conversations`
	args := []any{}
	if relevance != "" {
		q += ` WHERE relevance = ?`
		args = append(args, relevance)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return out, nil
}

// Delete removes a conversation and, via the foreign key cascade, any
// feedback rows referencing it. Deleting a missing ID returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveFeedback records a +1 or -1 vote against a conversation. The value is
// validated here as well as by the schema so callers get a typed error.
func (s *SQLiteStore) SaveFeedback(ctx context.Context, conversationID string, feedback int) error {
	if feedback != 1 && feedback != -1 {
		return fmt.Errorf("store: feedback must be 1 or -1, got %d", feedback)
	}

	// Verify the conversation exists first so a missing ID maps to
	// ErrNotFound rather than a foreign key violation.
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: check conversation: %w", err)
	}

	const q = `INSERT INTO feedback (conversation_id, feedback, created_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, conversationID, feedback, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: save feedback: %w", err)
	}
	return nil
}

// FeedbackStats returns aggregate thumbs-up/down counts.
func (s *SQLiteStore) FeedbackStats(ctx context.Context) (*FeedbackStats, error) {
	const q = `
SELECT
    COALESCE(SUM(CASE WHEN feedback =  1 THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN feedback = -1 THEN 1 ELSE 0 END), 0)
FROM feedback`

	var stats FeedbackStats
	if err := s.db.QueryRowContext(ctx, q).Scan(&stats.ThumbsUp, &stats.ThumbsDown); err != nil {
		return nil, fmt.Errorf("store: feedback stats: %w", err)
	}
	return &stats, nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
