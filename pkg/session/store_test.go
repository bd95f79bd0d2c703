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
package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/datascope/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir()+"/test.db", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func appendTurn(t *testing.T, store *Store, conversationID, user, assistant string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.AppendMessage(ctx, conversationID, types.Message{
		Role: types.RoleUser, Content: user, Timestamp: time.Now(),
	}))
	require.NoError(t, store.AppendMessage(ctx, conversationID, types.Message{
		Role: types.RoleAssistant, Content: assistant, Timestamp: time.Now(),
	}))
}

func TestStore_CreateConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateConversation(ctx, "user-1", "NULL churn_risk investigation")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	exists, err := store.ConversationExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ConversationExists(ctx, "no-such-id")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_SummarizePriorTurns_Empty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateConversation(ctx, "", "t")
	require.NoError(t, err)

	// No history at all: empty string, not an error.
	assert.Equal(t, "", store.SummarizePriorTurns(ctx, id))

	// A lone pending user row is not a complete pair.
	require.NoError(t, store.AppendMessage(ctx, id, types.Message{
		Role: types.RoleUser, Content: "why are rows missing?", Timestamp: time.Now(),
	}))
	assert.Equal(t, "", store.SummarizePriorTurns(ctx, id))
}

func TestStore_SummarizePriorTurns_PairsAndSkipsPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateConversation(ctx, "", "t")
	require.NoError(t, err)

	appendTurn(t, store, id, "first question", "first answer")
	appendTurn(t, store, id, "second question", "second answer")

	// The ask being answered now must not appear in the digest.
	require.NoError(t, store.AppendMessage(ctx, id, types.Message{
		Role: types.RoleUser, Content: "pending question", Timestamp: time.Now(),
	}))

	digest := store.SummarizePriorTurns(ctx, id)
	assert.Contains(t, digest, "first question")
	assert.Contains(t, digest, "first answer")
	assert.Contains(t, digest, "second question")
	assert.Contains(t, digest, "second answer")
	assert.NotContains(t, digest, "pending question")
}

func TestStore_SummarizePriorTurns_KeepsLastTwoPairs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateConversation(ctx, "", "t")
	require.NoError(t, err)

	appendTurn(t, store, id, "question one", "answer one")
	appendTurn(t, store, id, "question two", "answer two")
	appendTurn(t, store, id, "question three", "answer three")

	digest := store.SummarizePriorTurns(ctx, id)
	assert.NotContains(t, digest, "question one")
	assert.Contains(t, digest, "question two")
	assert.Contains(t, digest, "question three")
}

func TestStore_SummarizePriorTurns_Truncation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateConversation(ctx, "", "t")
	require.NoError(t, err)

	longQuestion := strings.Repeat("q", 1000)
	longAnswer := strings.Repeat("a", 2000)
	appendTurn(t, store, id, longQuestion, longAnswer)

	digest := store.SummarizePriorTurns(ctx, id)
	assert.Contains(t, digest, strings.Repeat("q", digestUserBudget)+"...")
	assert.Contains(t, digest, strings.Repeat("a", digestAssistantBudget)+"...")
	assert.NotContains(t, digest, strings.Repeat("q", digestUserBudget+1))
	assert.NotContains(t, digest, strings.Repeat("a", digestAssistantBudget+1))
}

func TestStore_SummarizePriorTurns_Bounded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateConversation(ctx, "", "t")
	require.NoError(t, err)

	// 100 turns of maximal content: digest length must stay under the
	// fixed bound regardless of history length.
	for i := 0; i < 100; i++ {
		appendTurn(t, store, id,
			fmt.Sprintf("question %d %s", i, strings.Repeat("x", 500)),
			fmt.Sprintf("answer %d %s", i, strings.Repeat("y", 1000)),
		)
	}

	digest := store.SummarizePriorTurns(ctx, id)
	require.NotEmpty(t, digest)

	// 2 pairs, each bounded by the user and assistant budgets plus fixed
	// framing text per pair.
	const framing = 100
	bound := digestMaxPairs * (digestUserBudget + digestAssistantBudget + framing)
	assert.Less(t, len(digest), bound)
	assert.Contains(t, digest, "question 99")
	assert.NotContains(t, digest, "question 97")
}

func TestStore_AppendMessage_ToolCalls(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateConversation(ctx, "", "t")
	require.NoError(t, err)

	err = store.AppendMessage(ctx, id, types.Message{
		Role:    types.RoleAssistant,
		Content: "checking",
		ToolCalls: []types.ToolCall{
			{ID: "call_1", Name: "execute_sql", Input: map[string]interface{}{"sql": "SELECT 1"}},
		},
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Messages)
}

func TestStore_RecordInvestigationAndStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateConversation(ctx, "user-1", "t")
	require.NoError(t, err)

	now := time.Now()
	err = store.RecordInvestigation(ctx, Investigation{
		ConversationID:  id,
		Question:        "Why do some customers have NULL churn_risk?",
		Status:          "completed",
		StartedAt:       now.Add(-12 * time.Second),
		CompletedAt:     now,
		DurationSeconds: 12.0,
		ToolsUsed:       []string{"search_patterns", "execute_sql"},
		Summary:         "CASE statement without ELSE",
	})
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Conversations)
	assert.Equal(t, 1, stats.Investigations)
	require.Len(t, stats.RecentInvestigations, 1)
	recent := stats.RecentInvestigations[0]
	assert.Equal(t, id, recent.ConversationID)
	assert.Equal(t, "completed", recent.Status)
	assert.InDelta(t, 12.0, recent.DurationSeconds, 0.001)
}
