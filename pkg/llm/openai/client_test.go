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
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/datascope/pkg/tools"
	"github.com/teradata-labs/datascope/pkg/types"
)

// fixedTool is a minimal catalog entry for request-shape tests.
type fixedTool struct {
	name string
}

func (t *fixedTool) Name() string        { return t.name }
func (t *fixedTool) Description() string { return "desc for " + t.name }
func (t *fixedTool) InputSchema() *tools.JSONSchema {
	return &tools.JSONSchema{
		Type: "object",
		Properties: map[string]*tools.JSONSchema{
			"query": {Type: "string"},
		},
		Required: []string{"query"},
	}
}

func (t *fixedTool) Execute(context.Context, map[string]interface{}) (*tools.Result, error) {
	return &tools.Result{}, nil
}

func TestChat(t *testing.T) {
	var gotReq ChatCompletionRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: "gpt-4o",
			Choices: []ChatCompletionChoice{{
				Message: ChatMessage{
					Role: "assistant",
					ToolCalls: []ToolCall{{
						ID:   "call_1",
						Type: "function",
						Function: FunctionCall{
							Name:      "execute_sql",
							Arguments: `{"sql":"SELECT 1"}`,
						},
					}},
				},
				FinishReason: "tool_calls",
			}},
			Usage: ChatCompletionUsage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL})
	resp, err := c.Chat(context.Background(),
		[]types.Message{{Role: types.RoleUser, Content: "check row counts"}},
		[]tools.Tool{&fixedTool{name: "execute_sql"}})
	require.NoError(t, err)

	assert.Equal(t, "Bearer k", gotAuth)
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, "execute_sql", gotReq.Tools[0].Function.Name)
	assert.Equal(t, "auto", gotReq.ToolChoice)

	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "SELECT 1", resp.ToolCalls[0].Input["sql"])

	// Usage reported by the endpoint passes through untouched.
	assert.Equal(t, 120, resp.Usage.InputTokens)
	assert.Equal(t, 30, resp.Usage.OutputTokens)
	assert.Equal(t, 150, resp.Usage.TotalTokens)
	_, estimated := resp.Metadata["usage_estimated"]
	assert.False(t, estimated)
}

func TestChat_EstimatesUsageWhenOmitted(t *testing.T) {
	// Some serving gateways speak the chat-completions wire format but never
	// send a usage block.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2",
			"model": "served-model",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "The CASE statement lacks an ELSE branch."},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL})
	resp, err := c.Chat(context.Background(),
		[]types.Message{{Role: types.RoleUser, Content: "why are churn_risk values NULL?"}},
		nil)
	require.NoError(t, err)

	assert.Greater(t, resp.Usage.InputTokens, 0)
	assert.Greater(t, resp.Usage.OutputTokens, 0)
	assert.Equal(t, resp.Usage.InputTokens+resp.Usage.OutputTokens, resp.Usage.TotalTokens)
	assert.Equal(t, true, resp.Metadata["usage_estimated"])
}

func TestChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit_error"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL})
	_, err := c.Chat(context.Background(),
		[]types.Message{{Role: types.RoleUser, Content: "x"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
