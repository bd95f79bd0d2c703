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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Exporter flushes a finalized trace to a backend.
type Exporter interface {
	Export(trace *InvestigationTrace) error
}

// LogExporter writes a one-line trace summary to the process log.
type LogExporter struct {
	logger *zap.Logger
}

// NewLogExporter creates a LogExporter.
func NewLogExporter(logger *zap.Logger) *LogExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogExporter{logger: logger}
}

// Export logs the trace summary.
func (e *LogExporter) Export(trace *InvestigationTrace) error {
	totalTokens := 0
	for _, span := range trace.LLMSpans {
		totalTokens += span.Usage.TotalTokens
	}

	e.logger.Info("investigation trace",
		zap.String("trace_id", trace.TraceID),
		zap.String("session_id", trace.SessionID),
		zap.String("status", trace.Status),
		zap.Duration("duration", trace.EndTime.Sub(trace.StartTime)),
		zap.Int("llm_calls", len(trace.LLMSpans)),
		zap.Int("tool_calls", len(trace.ToolSpans)),
		zap.Int("total_tokens", totalTokens),
	)
	return nil
}

// FileExporter archives each trace as a gzipped JSON file under a directory.
type FileExporter struct {
	dir string
}

// NewFileExporter creates a FileExporter, creating the directory if needed.
func NewFileExporter(dir string) (*FileExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	return &FileExporter{dir: dir}, nil
}

// Export writes trace_<id>.json.gz atomically (write temp, rename).
func (e *FileExporter) Export(trace *InvestigationTrace) error {
	data, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	final := filepath.Join(e.dir, fmt.Sprintf("trace_%s.json.gz", trace.TraceID))
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		_ = gz.Close()
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write trace: %w", err)
	}
	if err := gz.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finish trace: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close trace file: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to store trace file: %w", err)
	}
	return nil
}

var (
	_ Exporter = (*LogExporter)(nil)
	_ Exporter = (*FileExporter)(nil)
)
