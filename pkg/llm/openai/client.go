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

// Package openai implements the LLMProvider for OpenAI-compatible chat
// completions endpoints, including model serving gateways that speak the
// same wire format.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teradata-labs/datascope/pkg/llm"
	"github.com/teradata-labs/datascope/pkg/tools"
	"github.com/teradata-labs/datascope/pkg/types"
)

// Default configuration values.
const (
	DefaultModel       = "gpt-4o"
	DefaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultTimeout     = 60 * time.Second
	DefaultMaxTokens   = 4096
	DefaultTemperature = 1.0
)

// Config holds configuration for the client.
type Config struct {
	APIKey      string
	Model       string
	Endpoint    string // full chat-completions URL
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Client implements types.LLMProvider over the chat-completions API.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewClient creates a new client, applying defaults for unset fields.
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
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
		httpClient:  &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return "openai" }

// Model returns the model identifier.
func (c *Client) Model() string { return c.model }

// Chat sends the conversation and returns the parsed response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, catalog []tools.Tool) (*types.LLMResponse, error) {
	req := &ChatCompletionRequest{
		Model:       c.model,
		Messages:    convertMessages(messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if apiTools := convertTools(catalog); len(apiTools) > 0 {
		req.Tools = apiTools
		req.ToolChoice = "auto"
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, err
	}
	out := convertResponse(resp)
	if out.Usage.TotalTokens == 0 {
		// Serving gateways speaking this wire format sometimes omit the
		// usage block; estimate so downstream accounting still works.
		out.Usage = llm.EstimateUsage(messages, out)
		out.Metadata["usage_estimated"] = true
	}
	return out, nil
}

// convertMessages maps conversation messages onto the wire format.
// Assistant messages that only carry tool calls omit content entirely.
func convertMessages(messages []types.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleAssistant:
			api := ChatMessage{Role: msg.Role, Content: msg.Content}
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Input)
				if err != nil {
					args = []byte("{}")
				}
				api.ToolCalls = append(api.ToolCalls, ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, api)
		case types.RoleTool:
			out = append(out, ChatMessage{
				Role:       msg.Role,
				Content:    msg.Content,
				ToolCallID: msg.ToolUseID,
			})
		default:
			out = append(out, ChatMessage{Role: msg.Role, Content: msg.Content})
		}
	}
	return out
}

// convertTools maps the catalog onto function declarations.
func convertTools(catalog []tools.Tool) []Tool {
	var out []Tool
	for _, t := range catalog {
		def := FunctionDef{
			Name:        t.Name(),
			Description: t.Description(),
		}
		if schema := t.InputSchema(); schema != nil {
			def.Parameters = schema.ToMap()
		}
		out = append(out, Tool{Type: "function", Function: def})
	}
	return out
}

// convertResponse maps the API response onto the provider contract.
func convertResponse(resp *ChatCompletionResponse) *types.LLMResponse {
	out := &types.LLMResponse{
		Usage: types.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Metadata: map[string]interface{}{"model": resp.Model},
	}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Content = choice.Message.Content
	out.Metadata["finish_reason"] = choice.FinishReason

	switch choice.FinishReason {
	case "stop":
		out.StopReason = "end_turn"
	case "length":
		out.StopReason = "max_tokens"
	case "tool_calls", "function_call":
		out.StopReason = "tool_use"
	default:
		out.StopReason = choice.FinishReason
	}

	for _, tc := range choice.Message.ToolCalls {
		var input map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
			input = map[string]interface{}{"_raw": tc.Function.Arguments}
		}
		out.ToolCalls = append(out.ToolCalls, types.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}
	return out
}

// callAPI performs the HTTP round-trip.
func (c *Client) callAPI(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		if len(respBody) > 300 {
			respBody = respBody[:300]
		}
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s (type: %s)", resp.Error.Message, resp.Error.Type)
	}
	return &resp, nil
}

var _ types.LLMProvider = (*Client)(nil)
