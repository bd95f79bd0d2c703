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

// Tracer records the spans of one investigation.
//
// A tracer is per-investigation, never shared across requests. Complete and
// Fail are idempotent: the first call wins, sets the end time exactly once,
// and flushes the trace through the exporter.
//
// Thread-safe: all methods can be called concurrently.
type Tracer interface {
	// LogLLMCall records one model call. resp may be nil when err is set.
	LogLLMCall(model string, messageCount int, resp *types.LLMResponse, duration time.Duration, err error)

	// LogToolCall records one tool execution. errText is empty on success.
	LogToolCall(name string, args map[string]interface{}, output string, errText string, duration time.Duration)

	// Complete finalizes the trace as successful and flushes it.
	Complete(question, answer string)

	// Fail finalizes the trace as failed and flushes it.
	Fail(err error)
}
