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
package observability

import (
	"time"

	"github.com/teradata-labs/datascope/pkg/types"
)

// NoOpTracer is a tracer that does nothing.
// Use for testing or when observability is disabled.
type NoOpTracer struct{}

// NewNoOpTracer creates a no-op tracer.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

// LogLLMCall does nothing.
func (t *NoOpTracer) LogLLMCall(string, int, *types.LLMResponse, time.Duration, error) {}

// LogToolCall does nothing.
func (t *NoOpTracer) LogToolCall(string, map[string]interface{}, string, string, time.Duration) {}

// Complete does nothing.
func (t *NoOpTracer) Complete(string, string) {}

// Fail does nothing.
func (t *NoOpTracer) Fail(error) {}

// Ensure NoOpTracer implements Tracer interface.
var _ Tracer = (*NoOpTracer)(nil)
