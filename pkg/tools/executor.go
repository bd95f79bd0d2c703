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
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Executor runs catalog tools with argument validation and soft-failure
// semantics. Execute never returns a Go error for handler failures; every
// failure mode produces a Result the caller can render for the LLM.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute looks up and runs a tool by name.
//
// Unknown names produce a tool_not_found Result so a batch of tool calls is
// never aborted by one bad name. Arguments are validated against the tool's
// input schema before the handler runs.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) *Result {
	tool, ok := e.registry.Get(toolName)
	if !ok {
		return Errorf(ErrToolNotFound, fmt.Sprintf("Unknown tool: %s", toolName))
	}

	if res := validateArguments(tool, params); res != nil {
		return res
	}

	start := time.Now()
	result, err := tool.Execute(ctx, params)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		result = Errorf(ErrExecution, fmt.Sprintf("%s failed: %v", toolName, err))
	}
	if result == nil {
		result = &Result{}
	}
	// Executor timing is authoritative.
	result.ExecutionTimeMs = elapsed
	return result
}

// validateArguments checks params against the tool's input schema.
// Returns nil when valid, or an invalid_arguments Result.
func validateArguments(tool Tool, params map[string]interface{}) *Result {
	schema := tool.InputSchema()
	if schema == nil {
		return nil
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	v, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema.ToMap()),
		gojsonschema.NewGoLoader(params),
	)
	if err != nil {
		// Malformed schema or arguments the loader cannot handle.
		return Errorf(ErrInvalidArguments, fmt.Sprintf("invalid arguments for %s: %v", tool.Name(), err))
	}
	if !v.Valid() {
		msg := fmt.Sprintf("invalid arguments for %s", tool.Name())
		if errs := v.Errors(); len(errs) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, errs[0].String())
		}
		return Errorf(ErrInvalidArguments, msg)
	}
	return nil
}
