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

// Package anthropic implements the LLMProvider interface against the
// Anthropic Messages API. System prompts and the tool catalog are marked
// with cache_control so repeated investigation turns hit the prompt cache.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/teradata-labs/datascope/pkg/llm"
	"github.com/teradata-labs/datascope/pkg/tools"
	"github.com/teradata-labs/datascope/pkg/types"
)

const (
	// DefaultModel is the default Claude model.
	DefaultModel = "claude-sonnet-4-5-20250929"
	// DefaultEndpoint is the default Anthropic API endpoint.
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultMaxTokens is the default maximum tokens per request.
	DefaultMaxTokens = 4096
	// DefaultTemperature is the default LLM temperature.
	DefaultTemperature = 1.0
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 60 * time.Second
)

// Client implements the LLMProvider interface for Anthropic's Claude API.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	httpClient  *http.Client
	maxTokens   int
	temperature float64
}

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey      string
	Model       string // Default: claude-sonnet-4-5-20250929
	Endpoint    string // Default: https://api.anthropic.com/v1/messages
	Timeout     time.Duration
	MaxTokens   int     // Default: 4096
	Temperature float64 // Default: 1.0
}

// NewClient creates a new Anthropic client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		if envModel := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); envModel != "" {
			config.Model = envModel
		} else {
			config.Model = DefaultModel
		}
	}
	if config.Endpoint == "" {
		if envEndpoint := os.Getenv("ANTHROPIC_API_ENDPOINT"); envEndpoint != "" {
			config.Endpoint = envEndpoint
		} else {
			config.Endpoint = DefaultEndpoint
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}

	return &Client{
		apiKey:      config.APIKey,
		model:       config.Model,
		endpoint:    config.Endpoint,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation to Claude and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, catalog []tools.Tool) (*types.LLMResponse, error) {
	systemPrompt, apiMessages := c.convertMessages(messages)
	apiTools := c.convertTools(catalog)

	req := &MessagesRequest{
		Model:       c.model,
		Messages:    apiMessages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	// Anthropic Messages API requires system prompts as a separate field,
	// not in the messages array.
	if len(systemPrompt) > 0 {
		req.System = systemPrompt
	}
	if len(apiTools) > 0 {
		req.Tools = apiTools
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}

	out := c.convertResponse(resp)
	if out.Usage.TotalTokens == 0 {
		// Proxies in front of the Messages API have been seen dropping the
		// usage block; estimate so downstream accounting still works.
		out.Usage = llm.EstimateUsage(messages, out)
		out.Metadata["usage_estimated"] = true
	}
	return out, nil
}

// convertMessages converts conversation messages to Anthropic format.
// Returns the system prompt blocks (with cache_control on the last block)
// and the API messages. Tool results become user messages carrying a
// tool_result block, which is how the Messages API represents them.
func (c *Client) convertMessages(messages []types.Message) ([]TextBlockParam, []Message) {
	var systemParts []string
	var apiMessages []Message

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			systemParts = append(systemParts, msg.Content)

		case types.RoleUser:
			apiMessages = append(apiMessages, Message{
				Role: "user",
				Content: []ContentBlock{
					{Type: "text", Text: msg.Content},
				},
			})

		case types.RoleAssistant:
			var blocks []ContentBlock
			if msg.Content != "" {
				blocks = append(blocks, ContentBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, ContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: tc.Input,
				})
			}
			if len(blocks) == 0 {
				blocks = append(blocks, ContentBlock{Type: "text", Text: ""})
			}
			apiMessages = append(apiMessages, Message{Role: "assistant", Content: blocks})

		case types.RoleTool:
			apiMessages = append(apiMessages, Message{
				Role: "user",
				Content: []ContentBlock{
					{
						Type:      "tool_result",
						ToolUseID: msg.ToolUseID,
						Content:   msg.Content,
					},
				},
			})
		}
	}

	var systemBlocks []TextBlockParam
	if len(systemParts) > 0 {
		systemBlocks = []TextBlockParam{
			{
				Type:         "text",
				Text:         strings.Join(systemParts, "\n\n"),
				CacheControl: &CacheControl{Type: "ephemeral"},
			},
		}
	}

	return systemBlocks, apiMessages
}

// convertTools converts the tool catalog to Anthropic format. The last tool
// carries cache_control so the whole catalog prefix is cached together.
func (c *Client) convertTools(catalog []tools.Tool) []CacheableTool {
	var apiTools []CacheableTool
	for _, t := range catalog {
		apiTools = append(apiTools, CacheableTool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema().ToMap(),
		})
	}
	if len(apiTools) > 0 {
		apiTools[len(apiTools)-1].CacheControl = &CacheControl{Type: "ephemeral"}
	}
	return apiTools
}

// convertResponse converts an Anthropic response to the provider-neutral format.
func (c *Client) convertResponse(resp *MessagesResponse) *types.LLMResponse {
	llmResp := &types.LLMResponse{
		StopReason: resp.StopReason,
		Usage: types.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Metadata: map[string]interface{}{
			"model":       resp.Model,
			"stop_reason": resp.StopReason,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			llmResp.Content += block.Text
		case "tool_use":
			llmResp.ToolCalls = append(llmResp.ToolCalls, types.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}

	return llmResp
}

// callAPI makes the HTTP request to Anthropic's API.
func (c *Client) callAPI(ctx context.Context, req *MessagesRequest) (*MessagesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	// Prompt caching beta — cached tokens don't count against Anthropic's ITPM rate limit.
	httpReq.Header.Set("anthropic-beta", "prompt-caching-2024-07-31")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, truncate(string(respBody), 300))
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Ensure Client implements LLMProvider interface.
var _ types.LLMProvider = (*Client)(nil)
