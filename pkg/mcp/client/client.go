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

// Package client implements the MCP client for connecting to the tool
// gateway over HTTP. It performs the initialize handshake, caches the tool
// catalog for the lifetime of the connection, and exposes remote tools as
// local catalog entries the agent can bind directly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teradata-labs/datascope/pkg/mcp/protocol"
	"github.com/teradata-labs/datascope/pkg/tools"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds a single gateway round trip.
const DefaultRequestTimeout = 30 * time.Second

// Client represents an MCP client connection to a gateway server.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
	clientInfo protocol.Implementation
	logger     *zap.Logger

	nextID int64

	mu          sync.RWMutex
	initialized bool
	serverInfo  protocol.Implementation
	toolCache   []protocol.Tool
}

// Config configures the MCP client.
type Config struct {
	// Endpoint is the gateway's JSON-RPC URL.
	Endpoint string

	// Tokens supplies the service-to-service bearer token. Optional.
	Tokens TokenSource

	// Client info sent during initialize.
	Name    string
	Version string

	Timeout time.Duration // Default: 30s
	Logger  *zap.Logger
}

// NewClient creates a new MCP client.
func NewClient(config Config) *Client {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultRequestTimeout
	}
	if config.Name == "" {
		config.Name = "datascope"
	}

	return &Client{
		endpoint: config.Endpoint,
		tokens:   config.Tokens,
		clientInfo: protocol.Implementation{
			Name:    config.Name,
			Version: config.Version,
		},
		logger: config.Logger,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Initialize performs the MCP handshake. Repeats are tolerated.
func (c *Client) Initialize(ctx context.Context) error {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolVersion,
		ClientInfo:      c.clientInfo,
	}

	raw, err := c.call(ctx, "initialize", params)
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("failed to parse initialize result: %w", err)
	}

	if result.ProtocolVersion != protocol.ProtocolVersion {
		return fmt.Errorf("protocol version mismatch: client=%s server=%s",
			protocol.ProtocolVersion, result.ProtocolVersion)
	}

	c.mu.Lock()
	c.initialized = true
	c.serverInfo = result.ServerInfo
	c.mu.Unlock()

	c.logger.Info("MCP client initialized",
		zap.String("server", result.ServerInfo.Name),
		zap.String("version", result.ServerInfo.Version),
		zap.Bool("tools", result.Capabilities.Tools != nil),
	)

	// Completes the handshake per MCP spec. Notifications carry no ID and
	// get no response body.
	if err := c.notify(ctx, "notifications/initialized"); err != nil {
		return fmt.Errorf("failed to send initialized notification: %w", err)
	}

	return nil
}

// ListTools returns the gateway's tool catalog. The catalog is cached for
// the lifetime of the connection; the gateway guarantees it is static.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	c.mu.RLock()
	cached := c.toolCache
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	raw, err := c.call(ctx, "tools/list", struct{}{})
	if err != nil {
		return nil, err
	}

	var result protocol.ToolListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools/list result: %w", err)
	}

	c.mu.Lock()
	c.toolCache = result.Tools
	c.mu.Unlock()

	return result.Tools, nil
}

// CallTool invokes a tool and returns the decoded payload from the first
// text content item. The payload always carries either the tool's data
// fields or an "error" string; it is returned as-is either way.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (map[string]interface{}, error) {
	params := protocol.CallToolParams{
		Name:      name,
		Arguments: arguments,
	}

	raw, err := c.call(ctx, "tools/call", params)
	if err != nil {
		return nil, err
	}

	var result protocol.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools/call result: %w", err)
	}

	if len(result.Content) == 0 || result.Content[0].Type != "text" {
		return nil, fmt.Errorf("tool %s returned no text content", name)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse tool payload: %w", err)
	}

	return payload, nil
}

// ServerInfo returns the server implementation info.
func (c *Client) ServerInfo() protocol.Implementation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// IsInitialized returns whether the client is initialized.
func (c *Client) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// call sends a request and waits for the response.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	req := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      c.nextRequestID(),
		Method:  method,
	}
	if params != nil {
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		req.Params = paramsJSON
	}

	body, status, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp protocol.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %w", status, err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// notify sends a request without an ID and expects no response body.
func (c *Client) notify(ctx context.Context, method string) error {
	req := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		Method:  method,
	}
	_, _, err := c.post(ctx, req)
	return err
}

// post performs the HTTP round trip, attaching the service credential and
// forwarding the per-user token from the context when present.
func (c *Client) post(ctx context.Context, req *protocol.Request) ([]byte, int, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to obtain service token: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if userToken := tools.UserTokenFromContext(ctx); userToken != "" {
		httpReq.Header.Set("X-User-Token", userToken)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	// 202 acknowledges a notification.
	if httpResp.StatusCode == http.StatusAccepted {
		return nil, httpResp.StatusCode, nil
	}
	// 401 still carries a JSON-RPC error body; let the caller surface it.
	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusUnauthorized {
		return nil, httpResp.StatusCode, fmt.Errorf("gateway error (status %d): %s", httpResp.StatusCode, truncate(string(body), 300))
	}

	return body, httpResp.StatusCode, nil
}

// nextRequestID generates the next request ID.
func (c *Client) nextRequestID() *protocol.RequestID {
	id := atomic.AddInt64(&c.nextID, 1)
	return protocol.NewNumericRequestID(id)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
