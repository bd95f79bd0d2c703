// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session persists conversations, messages, and investigation
// records to SQLite, and produces the bounded digest of prior turns that
// follow-up investigations inject as context. Persistence is best-effort
// telemetry: callers log store failures and keep going.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teradata-labs/datascope/pkg/llm"
	"github.com/teradata-labs/datascope/pkg/types"
	"go.uber.org/zap"
)

// Digest bounds. Only the user ask and the final assistant answer are
// persisted per turn, so the digest stays small and stable regardless of
// how many tool exchanges an investigation ran.
const (
	digestMaxPairs        = 2
	digestUserBudget      = 300
	digestAssistantBudget = 500
)

// Store provides persistent storage for conversations, messages, and
// investigation records.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

// Investigation is one completed investigation, recorded for analytics
// independently of message rows.
type Investigation struct {
	InvestigationID string
	ConversationID  string
	Question        string
	Status          string
	StartedAt       time.Time
	CompletedAt     time.Time
	DurationSeconds float64
	ToolsUsed       []string
	Summary         string
}

// Stats summarizes store contents for the /stats surface.
type Stats struct {
	Conversations        int                    `json:"conversations"`
	Messages             int                    `json:"messages"`
	Investigations       int                    `json:"investigations"`
	RecentInvestigations []InvestigationSummary `json:"recent_investigations"`
}

// InvestigationSummary is one row of Stats.RecentInvestigations.
type InvestigationSummary struct {
	InvestigationID string  `json:"investigation_id"`
	ConversationID  string  `json:"conversation_id"`
	Question        string  `json:"question"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	CompletedAt     string  `json:"completed_at"`
}

// NewStore creates a Store with SQLite persistence at dbPath.
// Encryption is disabled; use NewStoreWithConfig for encryption support.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	return NewStoreWithConfig(DBConfig{Path: dbPath}, logger)
}

// NewStoreWithConfig creates a Store with optional encryption.
func NewStoreWithConfig(config DBConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := OpenDB(config)
	if err != nil {
		return nil, err
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		conversation_id TEXT PRIMARY KEY,
		user_id TEXT,
		title TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		status TEXT DEFAULT 'active'
	);

	CREATE TABLE IF NOT EXISTS messages (
		message_id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT,
		tool_calls_json TEXT,
		tool_call_id TEXT,
		timestamp INTEGER NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS investigations (
		investigation_id TEXT PRIMARY KEY,
		conversation_id TEXT,
		question TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		completed_at INTEGER,
		duration_seconds REAL,
		tools_used_json TEXT,
		summary TEXT,
		FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE SET NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
	CREATE INDEX IF NOT EXISTS idx_investigations_conversation ON investigations(conversation_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateConversation inserts a conversation row and returns its id.
// Called at most once per conversation lifetime, at the first turn.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	now := time.Now().Unix()

	var user interface{}
	if userID != "" {
		user = userID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, user_id, title, created_at, updated_at, status)
		 VALUES (?, ?, ?, ?, ?, 'active')`,
		id, user, title, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return id, nil
}

// AppendMessage persists one message. Only the user ask and the final
// assistant answer are appended per turn; intermediate tool exchanges stay
// in memory.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toolCallsJSON interface{}
	if len(msg.ToolCalls) > 0 {
		b, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to marshal tool calls: %w", err)
		}
		toolCallsJSON = string(b)
	}

	var toolCallID interface{}
	if msg.ToolUseID != "" {
		toolCallID = msg.ToolUseID
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, tool_calls_json, tool_call_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, msg.Role, msg.Content, toolCallsJSON, toolCallID, ts.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE conversation_id = ?`,
		time.Now().Unix(), conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// SummarizePriorTurns builds the bounded digest of prior exchanges.
//
// Rows are paired chronologically as (user, assistant); the most recent
// pending user row — the one being answered now — is skipped. Only the last
// two complete pairs survive, user side truncated to 300 chars and
// assistant side to 500. Returns the empty string when no complete pair
// exists; absence of history is not an error.
func (s *Store) SummarizePriorTurns(ctx context.Context, conversationID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages
		 WHERE conversation_id = ? AND role IN (?, ?)
		 ORDER BY message_id ASC`,
		conversationID, types.RoleUser, types.RoleAssistant,
	)
	if err != nil {
		s.logger.Warn("failed to load prior turns", zap.String("conversation_id", conversationID), zap.Error(err))
		return ""
	}
	defer func() { _ = rows.Close() }()

	type turn struct {
		role    string
		content string
	}
	var turns []turn
	for rows.Next() {
		var t turn
		if err := rows.Scan(&t.role, &t.content); err != nil {
			s.logger.Warn("failed to scan prior turn", zap.Error(err))
			return ""
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("failed to read prior turns", zap.Error(err))
		return ""
	}

	type pair struct {
		user      string
		assistant string
	}
	var pairs []pair
	var pendingUser *string
	for i := range turns {
		switch turns[i].role {
		case types.RoleUser:
			pendingUser = &turns[i].content
		case types.RoleAssistant:
			if pendingUser != nil {
				pairs = append(pairs, pair{user: *pendingUser, assistant: turns[i].content})
				pendingUser = nil
			}
		}
	}
	// pendingUser left set here is the ask being answered now; dropped.

	if len(pairs) == 0 {
		return ""
	}
	if len(pairs) > digestMaxPairs {
		pairs = pairs[len(pairs)-digestMaxPairs:]
	}

	digest := ""
	for _, p := range pairs {
		digest += fmt.Sprintf("User asked: %s\nAssistant found: %s\n\n",
			truncateRunes(p.user, digestUserBudget),
			truncateRunes(p.assistant, digestAssistantBudget),
		)
	}

	s.logger.Debug("built conversation digest",
		zap.String("conversation_id", conversationID),
		zap.Int("pairs", len(pairs)),
		zap.Int("tokens", llm.GetTokenCounter().CountTokens(digest)),
	)
	return digest
}

// RecordInvestigation inserts one analytics row per completed investigation.
func (s *Store) RecordInvestigation(ctx context.Context, inv Investigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.InvestigationID == "" {
		inv.InvestigationID = uuid.New().String()
	}

	toolsJSON, err := json.Marshal(inv.ToolsUsed)
	if err != nil {
		return fmt.Errorf("failed to marshal tools used: %w", err)
	}

	var conversationID interface{}
	if inv.ConversationID != "" {
		conversationID = inv.ConversationID
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO investigations (investigation_id, conversation_id, question, status,
		 started_at, completed_at, duration_seconds, tools_used_json, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.InvestigationID, conversationID, inv.Question, inv.Status,
		inv.StartedAt.Unix(), inv.CompletedAt.Unix(), inv.DurationSeconds,
		string(toolsJSON), inv.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to record investigation: %w", err)
	}
	return nil
}

// ConversationExists reports whether a conversation row exists.
func (s *Store) ConversationExists(ctx context.Context, conversationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE conversation_id = ?`, conversationID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check conversation: %w", err)
	}
	return count > 0, nil
}

// Stats returns row counts and the most recent investigations.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{}
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM conversations`, &stats.Conversations},
		{`SELECT COUNT(*) FROM messages`, &stats.Messages},
		{`SELECT COUNT(*) FROM investigations`, &stats.Investigations},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT investigation_id, COALESCE(conversation_id, ''), question, status,
		 COALESCE(duration_seconds, 0), COALESCE(completed_at, 0)
		 FROM investigations ORDER BY completed_at DESC LIMIT 10`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent investigations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var inv InvestigationSummary
		var completedAt int64
		if err := rows.Scan(&inv.InvestigationID, &inv.ConversationID, &inv.Question,
			&inv.Status, &inv.DurationSeconds, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan investigation: %w", err)
		}
		if completedAt > 0 {
			inv.CompletedAt = time.Unix(completedAt, 0).UTC().Format(time.RFC3339)
		}
		stats.RecentInvestigations = append(stats.RecentInvestigations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read investigations: %w", err)
	}

	return stats, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// truncateRunes bounds s at n runes, appending an ellipsis when cut.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
