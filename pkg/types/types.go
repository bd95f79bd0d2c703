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

// Package types contains the shared conversation types used across the
// datascope agent. It exists so pkg/agent, pkg/llm, and pkg/session can
// share Message and LLMProvider without import cycles.
package types

import (
	"context"
	"time"

	"github.com/teradata-labs/datascope/pkg/tools"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	// ID uniquely identifies this call within the conversation.
	ID string

	// Name is the catalog tool name.
	Name string

	// Input contains the tool arguments.
	Input map[string]interface{}
}

// Message is a single turn in the LLM conversation.
//
// Invariant: a message with Role "tool" carries a ToolUseID that matches a
// ToolCalls[i].ID emitted by a preceding assistant message in the same
// history. The agent loop owns the growing message list for the duration of
// one investigation; it is discarded at completion.
type Message struct {
	// Role is one of system, user, assistant, tool.
	Role string

	// Content is the message text. May be empty on assistant messages
	// that only carry tool calls.
	Content string

	// ToolCalls contains tool invocations (assistant messages only).
	ToolCalls []ToolCall

	// ToolUseID correlates a tool message to the call that produced it.
	ToolUseID string

	// Timestamp when the message was created.
	Timestamp time.Time
}

// Usage tracks LLM token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// LLMResponse is a parsed response from the model.
type LLMResponse struct {
	// Content is the text response, empty when the model only requested tools.
	Content string

	// ToolCalls contains requested tool executions, in emitted order.
	ToolCalls []ToolCall

	// StopReason indicates why the model stopped (end_turn, tool_use,
	// max_tokens, content_filter).
	StopReason string

	// Usage tracks token consumption for this call.
	Usage Usage

	// Metadata carries provider-specific fields.
	Metadata map[string]interface{}
}

// LLMProvider is the pluggable model backend.
//
// Chat sends the accumulated history plus the bound tool catalog and returns
// the parsed response. Passing a nil or empty tool slice binds no tools,
// which forces a text-only response; the finalization pass depends on this.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, tools []tools.Tool) (*LLMResponse, error)

	// Name returns the provider name.
	Name() string

	// Model returns the model identifier.
	Model() string
}
