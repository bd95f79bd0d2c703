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

// Package tools defines the investigation tool catalog: the Tool interface,
// its JSON Schema description, the registry, and the executor that runs
// tools with soft-failure semantics. Every failure becomes a renderable
// Result the LLM can read and react to; nothing raises past the executor.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is a named, schema-described capability invocable by the LLM.
type Tool interface {
	// Name returns the tool's unique catalog identifier.
	Name() string

	// Description returns a human-readable description for LLM context.
	Description() string

	// InputSchema returns the JSON Schema for tool parameters.
	InputSchema() *JSONSchema

	// Execute runs the tool. Implementations degrade to a Result carrying
	// an Error rather than returning a Go error for expected failures;
	// a non-nil error return is reserved for programmer mistakes.
	Execute(ctx context.Context, params map[string]interface{}) (*Result, error)
}

// Result is the outcome of one tool execution.
type Result struct {
	// Data contains the result payload (shape varies by tool).
	Data interface{}

	// Error is set when execution failed; Data may still carry partial output.
	Error *Error

	// Metadata contains tool-specific extras (truncation flags, row counts).
	Metadata map[string]interface{}

	// ExecutionTimeMs is stamped by the executor.
	ExecutionTimeMs int64
}

// OK reports whether the execution succeeded.
func (r *Result) OK() bool {
	return r != nil && r.Error == nil
}

// Render serializes the result into the JSON payload the LLM sees.
// The payload always carries either the data fields or an "error" string.
func (r *Result) Render() string {
	if r == nil {
		return `{"error": "no result"}`
	}
	var payload interface{}
	if r.Error != nil {
		payload = map[string]interface{}{"error": r.Error.Message}
	} else {
		payload = r.Data
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return `{"error": "unrenderable tool result"}`
	}
	return string(b)
}

// Error codes used across tool implementations.
const (
	ErrToolNotFound     = "tool_not_found"
	ErrInvalidArguments = "invalid_arguments"
	ErrReadOnly         = "read_only_violation"
	ErrTimeout          = "timeout"
	ErrTransport        = "transport"
	ErrUserToken        = "user_token_required"
	ErrExecution        = "execution_failed"
)

// Error is a structured tool execution failure.
type Error struct {
	// Code is a machine-readable error code.
	Code string

	// Message is shown to the LLM; keep it descriptive and actionable.
	Message string

	// Retryable indicates whether the same call may succeed later.
	Retryable bool
}

// Errorf builds a failed Result.
func Errorf(code, message string) *Result {
	return &Result{Error: &Error{Code: code, Message: message}}
}

// JSONSchema describes tool parameters, following the JSON Schema spec.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []interface{}          `json:"enum,omitempty"`
	Default     interface{}            `json:"default,omitempty"`
}

// ToMap converts the schema to the generic map form wire protocols expect.
func (s *JSONSchema) ToMap() map[string]interface{} {
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]interface{}{"type": "object"}
	}
	return m
}

// ObjectSchema creates an object schema with the given properties.
func ObjectSchema(description string, properties map[string]*JSONSchema, required []string) *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: description,
		Properties:  properties,
		Required:    required,
	}
}

// StringSchema creates a string schema.
func StringSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description}
}

// NumberSchema creates a number schema.
func NumberSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "number", Description: description}
}
