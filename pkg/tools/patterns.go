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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pattern is one known-issue record from the similarity index.
type Pattern struct {
	PatternID        string  `json:"pattern_id"`
	Title            string  `json:"title"`
	Symptoms         string  `json:"symptoms"`
	RootCause        string  `json:"root_cause"`
	Resolution       string  `json:"resolution"`
	InvestigationSQL string  `json:"investigation_sql"`
	Score            float64 `json:"score"`
}

// PatternSearchConfig configures the vector-similarity index client.
type PatternSearchConfig struct {
	// Endpoint is the index query URL.
	Endpoint string

	// Token authenticates the service to the index (service trust domain).
	// A per-user token in the request context takes precedence.
	Token string

	// RequireUserToken refuses lookups when no per-user token is present in
	// the context, so historical issue data is only searched under the
	// human's permissions. Mirrors SQLToolConfig.
	RequireUserToken bool

	// TopK is the number of neighbors returned. Default 3.
	TopK int

	// Timeout bounds one lookup. Default 15s.
	Timeout time.Duration
}

// PatternSearchTool looks up similar historical data-quality issues by
// semantic similarity. An empty result set is a valid "no similar history"
// signal, not an error.
type PatternSearchTool struct {
	cfg        PatternSearchConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPatternSearchTool creates the search_patterns tool.
func NewPatternSearchTool(cfg PatternSearchConfig, logger *zap.Logger) *PatternSearchTool {
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternSearchTool{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (t *PatternSearchTool) Name() string { return "search_patterns" }

func (t *PatternSearchTool) Description() string {
	return "Search historical data-quality issues by semantic similarity. " +
		"Returns the closest known patterns with root cause and resolution."
}

func (t *PatternSearchTool) InputSchema() *JSONSchema {
	return ObjectSchema("search_patterns parameters", map[string]*JSONSchema{
		"query": StringSchema("Natural-language description of the observed symptoms."),
	}, []string{"query"})
}

func (t *PatternSearchTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	query, _ := params["query"].(string)

	userToken := UserTokenFromContext(ctx)
	usingUserToken := userToken != ""
	if t.cfg.RequireUserToken && !usingUserToken {
		return Errorf(ErrUserToken,
			"a per-user access token is required for pattern search and none was provided"), nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": query,
		"top_k": t.cfg.TopK,
	})
	if err != nil {
		return Errorf(ErrExecution, fmt.Sprintf("pattern search: %v", err)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Errorf(ErrExecution, fmt.Sprintf("pattern search: %v", err)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	token := t.cfg.Token
	if usingUserToken {
		token = userToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Errorf(ErrTimeout, fmt.Sprintf("pattern search timed out after %s", t.cfg.Timeout)), nil
		}
		return Errorf(ErrTransport, fmt.Sprintf("pattern index unreachable: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Errorf(ErrTransport,
			fmt.Sprintf("pattern index error (status %d): %s", resp.StatusCode, string(b))), nil
	}

	var parsed struct {
		Matches []Pattern `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Errorf(ErrExecution, fmt.Sprintf("pattern search: bad response: %v", err)), nil
	}
	if len(parsed.Matches) > t.cfg.TopK {
		parsed.Matches = parsed.Matches[:t.cfg.TopK]
	}
	return &Result{
		Data: map[string]interface{}{
			"patterns":         parsed.Matches,
			"count":            len(parsed.Matches),
			"using_user_token": usingUserToken,
		},
	}, nil
}
