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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teradata-labs/datascope/pkg/types"
	"go.uber.org/zap"
)

// InvestigationTracer accumulates spans for one investigation and flushes
// the trace through an Exporter on completion. Exporter failures are
// logged and swallowed.
type InvestigationTracer struct {
	mu        sync.Mutex
	trace     InvestigationTrace
	finalized bool
	exporter  Exporter
	logger    *zap.Logger
}

// NewTracer creates a tracer for one investigation. sessionID may be empty.
func NewTracer(sessionID string, exporter Exporter, logger *zap.Logger) *InvestigationTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvestigationTracer{
		trace: InvestigationTrace{
			TraceID:   uuid.New().String(),
			SessionID: sessionID,
			StartTime: time.Now(),
			Metadata:  make(map[string]interface{}),
		},
		exporter: exporter,
		logger:   logger,
	}
}

// TraceID returns the trace identifier.
func (t *InvestigationTracer) TraceID() string {
	return t.trace.TraceID
}

// LogLLMCall records one model call.
func (t *InvestigationTracer) LogLLMCall(model string, messageCount int, resp *types.LLMResponse, duration time.Duration, err error) {
	span := LLMSpan{
		Model:        model,
		MessageCount: messageCount,
		DurationMs:   duration.Milliseconds(),
	}
	if resp != nil {
		span.OutputChars = len(resp.Content)
		span.ToolCalls = len(resp.ToolCalls)
		span.Usage = resp.Usage
	}
	if err != nil {
		span.Error = err.Error()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return
	}
	t.trace.LLMSpans = append(t.trace.LLMSpans, span)
}

// LogToolCall records one tool execution.
func (t *InvestigationTracer) LogToolCall(name string, args map[string]interface{}, output string, errText string, duration time.Duration) {
	span := ToolSpan{
		Name:        name,
		Args:        args,
		OutputChars: len(output),
		DurationMs:  duration.Milliseconds(),
		Error:       errText,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return
	}
	t.trace.ToolSpans = append(t.trace.ToolSpans, span)
}

// Complete finalizes the trace as successful and flushes it. Idempotent.
func (t *InvestigationTracer) Complete(question, answer string) {
	t.finalize(func(trace *InvestigationTrace) {
		trace.Status = "completed"
		trace.Question = question
		trace.Answer = answer
	})
}

// Fail finalizes the trace as failed and flushes it. Idempotent.
func (t *InvestigationTracer) Fail(err error) {
	t.finalize(func(trace *InvestigationTrace) {
		trace.Status = "failed"
		if err != nil {
			trace.Error = err.Error()
		}
	})
}

// finalize sets the end time exactly once and exports the trace.
func (t *InvestigationTracer) finalize(apply func(*InvestigationTrace)) {
	t.mu.Lock()
	if t.finalized {
		t.mu.Unlock()
		return
	}
	t.finalized = true
	t.trace.EndTime = time.Now()
	apply(&t.trace)
	snapshot := t.trace
	t.mu.Unlock()

	if t.exporter == nil {
		return
	}
	if err := t.exporter.Export(&snapshot); err != nil {
		t.logger.Warn("trace export failed",
			zap.String("trace_id", snapshot.TraceID),
			zap.Error(err),
		)
	}
}

var _ Tracer = (*InvestigationTracer)(nil)
