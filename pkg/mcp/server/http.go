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

package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/teradata-labs/datascope/pkg/mcp/protocol"
	"github.com/teradata-labs/datascope/pkg/tools"
	"go.uber.org/zap"
)

// UserTokenHeader carries the end user's own credential. Data-access tools
// forward it upstream so permission checks apply to the human, not the
// service. It is a separate trust domain from the Authorization header and
// the two are never conflated.
const UserTokenHeader = "X-User-Token"

const maxRequestBody = 10 * 1024 * 1024 // 10MB

// HTTPTransport exposes an MCPServer over a single JSON-RPC POST endpoint.
// Authentication runs before dispatch; notifications return 202 with an
// empty body.
type HTTPTransport struct {
	server *MCPServer
	auth   *Authenticator
	logger *zap.Logger
}

// HTTPTransportConfig configures an HTTPTransport.
type HTTPTransportConfig struct {
	Server *MCPServer     // Required
	Auth   *Authenticator // Optional; nil disables authentication
	Logger *zap.Logger
}

// NewHTTPTransport creates the HTTP handler for the MCP endpoint.
func NewHTTPTransport(config HTTPTransportConfig) *HTTPTransport {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &HTTPTransport{
		server: config.Server,
		auth:   config.Auth,
		logger: config.Logger,
	}
}

// ServeHTTP implements http.Handler for the MCP endpoint.
func (t *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer func() { _ = r.Body.Close() }()

	// Validate content type (accept "application/json" with optional params like charset)
	ct := r.Header.Get("Content-Type")
	if ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if mediaType != "application/json" {
			http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
	}

	if t.auth != nil {
		if err := t.auth.Authenticate(r.Context(), r.Header.Get("Authorization")); err != nil {
			t.logger.Warn("request rejected", zap.Error(err))
			t.writeUnauthorized(w)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		t.logger.Error("failed to read request body", zap.Error(err))
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "Empty request body", http.StatusBadRequest)
		return
	}

	// Thread the per-user credential to tool handlers.
	ctx := r.Context()
	if userToken := r.Header.Get(UserTokenHeader); userToken != "" {
		ctx = tools.WithUserToken(ctx, userToken)
	}

	resp, err := t.server.HandleMessage(ctx, body)
	if err != nil {
		t.logger.Error("handler error", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Notification - accepted but no content
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

// writeUnauthorized sends a 401 with a JSON-RPC error body so protocol
// clients see a structured failure.
func (t *HTTPTransport) writeUnauthorized(w http.ResponseWriter) {
	resp := protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		Error:   protocol.NewError(protocol.Unauthorized, "unauthorized", nil),
	}
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(body)
}
