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

// Package observability records per-investigation traces: every LLM call
// and tool execution with timing, token usage, and output sizes, flushed
// through an Exporter when the investigation completes. It is a pure
// side-channel; nothing here affects investigation control flow.
package observability

import (
	"time"

	"github.com/teradata-labs/datascope/pkg/types"
)

// InvestigationTrace is the complete record of one investigation.
type InvestigationTrace struct {
	TraceID   string                 `json:"trace_id"`
	SessionID string                 `json:"session_id,omitempty"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Question  string                 `json:"question,omitempty"`
	Answer    string                 `json:"answer,omitempty"`
	Status    string                 `json:"status"` // "completed" or "failed"
	Error     string                 `json:"error,omitempty"`
	LLMSpans  []LLMSpan              `json:"llm_spans"`
	ToolSpans []ToolSpan             `json:"tool_spans"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// LLMSpan records one model call.
type LLMSpan struct {
	Model        string      `json:"model"`
	MessageCount int         `json:"message_count"`
	OutputChars  int         `json:"output_chars"`
	ToolCalls    int         `json:"tool_calls"`
	Usage        types.Usage `json:"usage"`
	DurationMs   int64       `json:"duration_ms"`
	Error        string      `json:"error,omitempty"`
}

// ToolSpan records one tool execution.
type ToolSpan struct {
	Name        string                 `json:"name"`
	Args        map[string]interface{} `json:"args,omitempty"`
	OutputChars int                    `json:"output_chars"`
	DurationMs  int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
}
