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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teradata-labs/datascope/pkg/mcp/protocol"
	"go.uber.org/zap"
)

// MethodHandler processes a JSON-RPC method call.
// id is the request ID (nil for notifications).
// params is the raw JSON params from the request.
type MethodHandler func(ctx context.Context, id json.RawMessage, params json.RawMessage) (interface{}, error)

// MCPServer is a JSON-RPC based MCP server that dispatches method calls
// to registered handlers.
type MCPServer struct {
	info         protocol.Implementation
	capabilities protocol.ServerCapabilities
	handlers     map[string]MethodHandler
	logger       *zap.Logger
	mu           sync.RWMutex
	clientInfo   *protocol.Implementation // Stored after initialize
}

// Option configures an MCPServer.
type Option func(*MCPServer)

// WithToolProvider registers a ToolProvider and enables the tools capability.
func WithToolProvider(p ToolProvider) Option {
	return func(s *MCPServer) {
		s.capabilities.Tools = &protocol.ToolsCapability{}
		s.RegisterHandler("tools/list", newToolsListHandler(p))
		s.RegisterHandler("tools/call", newToolsCallHandler(p))
	}
}

// NewMCPServer creates a new MCP server with the given identity and options.
func NewMCPServer(name, version string, logger *zap.Logger, opts ...Option) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &MCPServer{
		info: protocol.Implementation{
			Name:    name,
			Version: version,
		},
		handlers: make(map[string]MethodHandler),
		logger:   logger,
	}

	// Register built-in handlers
	s.RegisterHandler("initialize", s.handleInitialize)
	s.RegisterHandler("notifications/initialized", s.handleNotificationsInitialized)
	s.RegisterHandler("ping", s.handlePing)

	// Apply options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RegisterHandler registers a handler for a JSON-RPC method.
func (s *MCPServer) RegisterHandler(method string, handler MethodHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
}

// HandleMessage processes a single JSON-RPC message and returns the response bytes.
// For notifications (no id), returns nil.
func (s *MCPServer) HandleMessage(ctx context.Context, msg []byte) ([]byte, error) {
	var req protocol.Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return marshalResponse(nil, nil, protocol.NewError(protocol.ParseError, "invalid JSON", nil))
	}

	if err := protocol.ValidateRequest(&req); err != nil {
		return marshalResponse(nil, nil, protocol.NewError(protocol.InvalidRequest, err.Error(), nil))
	}

	s.logger.Debug("handling request", zap.String("method", req.Method), zap.Any("id", req.ID))
	start := time.Now()

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()

	if !ok {
		// Unknown method
		if req.ID == nil {
			// Notification for unknown method - ignore silently
			return nil, nil
		}
		return marshalResponse(req.ID, nil, protocol.NewError(protocol.MethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil))
	}

	// Extract raw ID for the handler
	var rawID json.RawMessage
	if req.ID != nil {
		idBytes, err := json.Marshal(req.ID)
		if err != nil {
			return marshalResponse(nil, nil, protocol.NewError(protocol.InternalError, "failed to marshal request ID", nil))
		}
		rawID = idBytes
	}

	result, err := handler(ctx, rawID, req.Params)
	duration := time.Since(start)

	if err != nil {
		// Handler returned an error
		s.logger.Warn("handler error",
			zap.String("method", req.Method),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if req.ID == nil {
			// Notification - don't send error response
			return nil, nil
		}
		// Preserve original JSON-RPC error code if the handler returned a *protocol.Error
		var rpcErr *protocol.Error
		if errors.As(err, &rpcErr) {
			return marshalResponse(req.ID, nil, rpcErr)
		}
		return marshalResponse(req.ID, nil, protocol.NewError(protocol.InternalError, err.Error(), nil))
	}

	s.logger.Debug("request handled",
		zap.String("method", req.Method),
		zap.Duration("duration", duration),
	)

	if req.ID == nil {
		// Notification - no response
		return nil, nil
	}

	return marshalResponse(req.ID, result, nil)
}

// handleInitialize processes the initialize request. Repeats are tolerated
// and return the same server info.
func (s *MCPServer) handleInitialize(_ context.Context, _ json.RawMessage, params json.RawMessage) (interface{}, error) {
	var initParams protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, protocol.NewError(protocol.InvalidParams, fmt.Sprintf("invalid initialize params: %v", err), nil)
		}
	}

	// Validate protocol version compatibility
	if initParams.ProtocolVersion != "" && initParams.ProtocolVersion != protocol.ProtocolVersion {
		s.logger.Warn("client protocol version mismatch",
			zap.String("client_version", initParams.ProtocolVersion),
			zap.String("server_version", protocol.ProtocolVersion),
		)
	}

	if initParams.ClientInfo.Name != "" {
		s.mu.Lock()
		info := initParams.ClientInfo
		s.clientInfo = &info
		s.mu.Unlock()

		s.logger.Info("client connected",
			zap.String("client_name", initParams.ClientInfo.Name),
			zap.String("client_version", initParams.ClientInfo.Version),
		)
	}

	result := protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.info,
	}
	return result, nil
}

// handleNotificationsInitialized handles the initialized notification (no-op).
func (s *MCPServer) handleNotificationsInitialized(_ context.Context, _ json.RawMessage, _ json.RawMessage) (interface{}, error) {
	s.logger.Debug("client initialized")
	return nil, nil
}

// handlePing handles the ping request.
func (s *MCPServer) handlePing(_ context.Context, _ json.RawMessage, _ json.RawMessage) (interface{}, error) {
	return struct{}{}, nil
}

// ClientInfo returns the connected client's information, or nil if not yet initialized.
func (s *MCPServer) ClientInfo() *protocol.Implementation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientInfo
}

// marshalResponse creates a JSON-RPC response.
func marshalResponse(id *protocol.RequestID, result interface{}, rpcErr *protocol.Error) ([]byte, error) {
	resp := protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}

	if result != nil {
		resultBytes, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		resp.Result = resultBytes
	}

	return json.Marshal(resp)
}
