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
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/datascope/pkg/types"
	"go.uber.org/zap/zaptest"
)

// captureExporter records exported traces in memory.
type captureExporter struct {
	traces []*InvestigationTrace
	err    error
}

func (e *captureExporter) Export(trace *InvestigationTrace) error {
	e.traces = append(e.traces, trace)
	return e.err
}

func TestTracer_RecordsSpans(t *testing.T) {
	exporter := &captureExporter{}
	tracer := NewTracer("conv-1", exporter, zaptest.NewLogger(t))
	require.NotEmpty(t, tracer.TraceID())

	tracer.LogLLMCall("claude-sonnet-4-5", 2, &types.LLMResponse{
		Content:   "looking at the churn table",
		ToolCalls: []types.ToolCall{{ID: "call_1", Name: "execute_sql"}},
		Usage:     types.Usage{InputTokens: 120, OutputTokens: 40, TotalTokens: 160},
	}, 250*time.Millisecond, nil)
	tracer.LogToolCall("execute_sql",
		map[string]interface{}{"query": "SELECT 1"},
		`{"row_count":1}`, "", 30*time.Millisecond)
	tracer.LogLLMCall("claude-sonnet-4-5", 4, nil, 10*time.Millisecond, errors.New("overloaded"))

	tracer.Complete("why are rows missing?", "upstream job skipped a partition")

	require.Len(t, exporter.traces, 1)
	trace := exporter.traces[0]
	assert.Equal(t, "completed", trace.Status)
	assert.Equal(t, "conv-1", trace.SessionID)
	assert.Equal(t, "why are rows missing?", trace.Question)
	assert.False(t, trace.EndTime.IsZero())

	require.Len(t, trace.LLMSpans, 2)
	first := trace.LLMSpans[0]
	assert.Equal(t, "claude-sonnet-4-5", first.Model)
	assert.Equal(t, 2, first.MessageCount)
	assert.Equal(t, 1, first.ToolCalls)
	assert.Equal(t, 160, first.Usage.TotalTokens)
	assert.Equal(t, int64(250), first.DurationMs)
	assert.Equal(t, "overloaded", trace.LLMSpans[1].Error)

	require.Len(t, trace.ToolSpans, 1)
	assert.Equal(t, "execute_sql", trace.ToolSpans[0].Name)
	assert.Equal(t, len(`{"row_count":1}`), trace.ToolSpans[0].OutputChars)
}

func TestTracer_CompleteIsIdempotent(t *testing.T) {
	exporter := &captureExporter{}
	tracer := NewTracer("", exporter, zaptest.NewLogger(t))

	tracer.Complete("q", "a")
	end := exporter.traces[0].EndTime

	tracer.Complete("q2", "a2")
	tracer.Fail(errors.New("late failure"))

	require.Len(t, exporter.traces, 1, "only the first finalize exports")
	assert.Equal(t, "completed", exporter.traces[0].Status)
	assert.Equal(t, "q", exporter.traces[0].Question)
	assert.Equal(t, end, exporter.traces[0].EndTime)
}

func TestTracer_FailRecordsError(t *testing.T) {
	exporter := &captureExporter{}
	tracer := NewTracer("conv-2", exporter, zaptest.NewLogger(t))

	tracer.Fail(errors.New("LLM unreachable"))

	require.Len(t, exporter.traces, 1)
	assert.Equal(t, "failed", exporter.traces[0].Status)
	assert.Equal(t, "LLM unreachable", exporter.traces[0].Error)
}

func TestTracer_SpansDroppedAfterFinalize(t *testing.T) {
	exporter := &captureExporter{}
	tracer := NewTracer("", exporter, zaptest.NewLogger(t))

	tracer.Complete("q", "a")
	tracer.LogLLMCall("m", 1, nil, time.Millisecond, nil)
	tracer.LogToolCall("execute_sql", nil, "", "", time.Millisecond)

	assert.Empty(t, exporter.traces[0].LLMSpans)
	assert.Empty(t, exporter.traces[0].ToolSpans)
}

func TestTracer_ExporterFailureSwallowed(t *testing.T) {
	exporter := &captureExporter{err: errors.New("disk full")}
	tracer := NewTracer("", exporter, zaptest.NewLogger(t))
	tracer.Complete("q", "a")
}

func TestTracer_NilExporter(t *testing.T) {
	tracer := NewTracer("", nil, nil)
	tracer.LogLLMCall("m", 1, nil, time.Millisecond, nil)
	tracer.Complete("q", "a")
}

func TestFileExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	exporter, err := NewFileExporter(dir)
	require.NoError(t, err)

	tracer := NewTracer("conv-3", exporter, zaptest.NewLogger(t))
	tracer.LogToolCall("search_patterns", map[string]interface{}{"query": "row count drop"}, "{}", "", time.Millisecond)
	tracer.Complete("what happened?", "a backfill overwrote yesterday")

	path := filepath.Join(dir, "trace_"+tracer.TraceID()+".json.gz")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	var trace InvestigationTrace
	require.NoError(t, json.Unmarshal(data, &trace))
	assert.Equal(t, tracer.TraceID(), trace.TraceID)
	assert.Equal(t, "completed", trace.Status)
	require.Len(t, trace.ToolSpans, 1)
	assert.Equal(t, "search_patterns", trace.ToolSpans[0].Name)

	// No temp file left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestLogExporter(t *testing.T) {
	exporter := NewLogExporter(zaptest.NewLogger(t))
	err := exporter.Export(&InvestigationTrace{
		TraceID:   "t-1",
		Status:    "completed",
		StartTime: time.Now().Add(-time.Second),
		EndTime:   time.Now(),
		LLMSpans:  []LLMSpan{{Usage: types.Usage{TotalTokens: 500}}},
	})
	assert.NoError(t, err)
}

func TestNoOpTracer(t *testing.T) {
	tracer := NewNoOpTracer()
	tracer.LogLLMCall("m", 1, nil, time.Millisecond, nil)
	tracer.LogToolCall("t", nil, "", "", time.Millisecond)
	tracer.Complete("q", "a")
	tracer.Fail(errors.New("x"))
}
