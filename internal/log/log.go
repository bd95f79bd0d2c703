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

// Package log builds the process logger shared by the binaries. Everything
// downstream takes an injected *zap.Logger; this is only the construction.
package log

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger. format "json" selects production output, anything
// else the human-readable development encoder. Unknown levels fall back to
// the encoder's default.
func New(level, format string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if !strings.EqualFold(format, "json") {
		cfg = zap.NewDevelopmentConfig()
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(l)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
