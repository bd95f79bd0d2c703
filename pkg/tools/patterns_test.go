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
package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternSearchTool_Execute(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"matches": []Pattern{
				{
					PatternID: "P-042",
					Title:     "NULL churn_risk from CASE without ELSE",
					RootCause: "CASE statement lacks an ELSE branch",
					Score:     0.91,
				},
			},
		})
	}))
	defer srv.Close()

	tool := NewPatternSearchTool(PatternSearchConfig{
		Endpoint: srv.URL,
		Token:    "service-token",
	}, nil)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"query": "customers with NULL churn_risk",
	})
	require.NoError(t, err)
	require.True(t, result.OK(), "unexpected error: %v", result.Error)

	assert.Equal(t, "Bearer service-token", gotAuth)
	assert.Equal(t, "customers with NULL churn_risk", gotBody["query"])
	assert.Equal(t, float64(3), gotBody["top_k"])

	data := result.Data.(map[string]interface{})
	assert.Equal(t, 1, data["count"])
	patterns := data["patterns"].([]Pattern)
	assert.Equal(t, "P-042", patterns[0].PatternID)
}

func TestPatternSearchTool_EmptyMatchesIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"matches": []}`))
	}))
	defer srv.Close()

	tool := NewPatternSearchTool(PatternSearchConfig{Endpoint: srv.URL}, nil)
	result, err := tool.Execute(context.Background(), map[string]interface{}{"query": "anything"})
	require.NoError(t, err)
	require.True(t, result.OK())
	data := result.Data.(map[string]interface{})
	assert.Equal(t, 0, data["count"])
}

func TestPatternSearchTool_UserTokenPreferred(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"matches": []}`))
	}))
	defer srv.Close()

	tool := NewPatternSearchTool(PatternSearchConfig{
		Endpoint: srv.URL,
		Token:    "service-token",
	}, nil)

	// A per-user token in the context wins over the configured service token.
	ctx := WithUserToken(context.Background(), "user-token")
	result, err := tool.Execute(ctx, map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, "Bearer user-token", gotAuth)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, true, data["using_user_token"])

	// Without one the service token is used and the result says so.
	result, err = tool.Execute(context.Background(), map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, "Bearer service-token", gotAuth)
	data = result.Data.(map[string]interface{})
	assert.Equal(t, false, data["using_user_token"])
}

func TestPatternSearchTool_RequireUserToken(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{"matches": []}`))
	}))
	defer srv.Close()

	tool := NewPatternSearchTool(PatternSearchConfig{
		Endpoint:         srv.URL,
		Token:            "service-token",
		RequireUserToken: true,
	}, nil)

	// Refused before any request leaves the process.
	result, err := tool.Execute(context.Background(), map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, ErrUserToken, result.Error.Code)
	assert.Equal(t, 0, requests)

	ctx := WithUserToken(context.Background(), "user-token")
	result, err = tool.Execute(ctx, map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, 1, requests)
}

func TestPatternSearchTool_UnreachableIsSoft(t *testing.T) {
	tool := NewPatternSearchTool(PatternSearchConfig{
		Endpoint: "http://127.0.0.1:1/patterns",
	}, nil)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, ErrTransport, result.Error.Code)
	assert.Contains(t, result.Render(), "error")
}

func TestPatternSearchTool_UpstreamErrorIsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tool := NewPatternSearchTool(PatternSearchConfig{Endpoint: srv.URL}, nil)
	result, err := tool.Execute(context.Background(), map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, ErrTransport, result.Error.Code)
	assert.Contains(t, result.Error.Message, "503")
}
