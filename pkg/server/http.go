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

// Package server exposes the chat-facing HTTP surface. It is deliberately
// thin: request validation, CORS, logging, and graceful shutdown live here;
// all investigation logic lives in pkg/agent.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teradata-labs/datascope/pkg/agent"
	"github.com/teradata-labs/datascope/pkg/observability"
	"github.com/teradata-labs/datascope/pkg/session"
	"go.uber.org/zap"
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig returns a permissive CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         86400, // 24 hours
	}
}

// HTTPServer serves the chat API.
type HTTPServer struct {
	agent      *agent.Agent
	store      *session.Store
	exporter   observability.Exporter
	httpServer *http.Server
	logger     *zap.Logger
	corsConfig CORSConfig
}

// Option configures the HTTPServer.
type Option func(*HTTPServer)

// WithStore attaches the state store backing /stats.
func WithStore(store *session.Store) Option {
	return func(s *HTTPServer) { s.store = store }
}

// WithTraceExporter enables per-investigation tracing. Each /chat request
// gets a fresh tracer flushing through the exporter; without one, tracing
// is disabled and the shared agent is used as-is.
func WithTraceExporter(exporter observability.Exporter) Option {
	return func(s *HTTPServer) { s.exporter = exporter }
}

// WithCORS overrides the CORS configuration.
func WithCORS(cors CORSConfig) Option {
	return func(s *HTTPServer) { s.corsConfig = cors }
}

// NewHTTPServer creates the chat server bound to addr.
func NewHTTPServer(addr string, a *agent.Agent, logger *zap.Logger, opts ...Option) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &HTTPServer{
		agent:      a,
		logger:     logger,
		corsConfig: DefaultCORSConfig(),
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // investigations take tens of seconds
			IdleTimeout:  120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the HTTP server and blocks until Stop or failure.
func (s *HTTPServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)

	var handler http.Handler = mux
	if s.corsConfig.Enabled {
		handler = s.corsMiddleware(handler)
	}
	handler = s.loggingMiddleware(handler)
	s.httpServer.Handler = handler

	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs one line per request.
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		if s.corsConfig.AllowCredentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if len(s.corsConfig.AllowedMethods) > 0 {
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(s.corsConfig.AllowedMethods, ", "))
		}
		if len(s.corsConfig.AllowedHeaders) > 0 {
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(s.corsConfig.AllowedHeaders, ", "))
		}
		if s.corsConfig.MaxAge > 0 {
			w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", s.corsConfig.MaxAge))
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) allowedOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	for _, allowed := range s.corsConfig.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if allowed == origin {
			return origin
		}
	}
	return ""
}
