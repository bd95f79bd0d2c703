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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/datascope/pkg/mcp/protocol"
	"github.com/teradata-labs/datascope/pkg/tools"
	"go.uber.org/zap/zaptest"
)

// sqlEchoTool is a minimal catalog entry for gateway tests.
type sqlEchoTool struct{}

func (sqlEchoTool) Name() string        { return "execute_sql" }
func (sqlEchoTool) Description() string { return "run read-only SQL" }

func (sqlEchoTool) InputSchema() *tools.JSONSchema {
	return tools.ObjectSchema("params", map[string]*tools.JSONSchema{
		"sql": tools.StringSchema("query"),
	}, []string{"sql"})
}

func (sqlEchoTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	return &tools.Result{Data: map[string]interface{}{
		"rows":      [][]interface{}{{int64(1247)}},
		"row_count": 1,
	}}, nil
}

func newTestServer(t *testing.T) *MCPServer {
	t.Helper()
	registry := tools.NewRegistry()
	registry.Register(sqlEchoTool{})
	return NewMCPServer("datascope-mcp", "0.1.0", zaptest.NewLogger(t),
		WithToolProvider(NewRegistryProvider(registry)),
	)
}

func handle(t *testing.T, s *MCPServer, msg string) *protocol.Response {
	t.Helper()
	respBytes, err := s.HandleMessage(context.Background(), []byte(msg))
	require.NoError(t, err)
	require.NotNil(t, respBytes)
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(respBytes, &resp))
	return &resp
}

func TestHandleMessage_Initialize(t *testing.T) {
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"datascope","version":"0.1.0"}}}`)

	require.Nil(t, resp.Error)
	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, protocol.ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "datascope-mcp", result.ServerInfo.Name)
	assert.NotNil(t, result.Capabilities.Tools)

	info := s.ClientInfo()
	require.NotNil(t, info)
	assert.Equal(t, "datascope", info.Name)
}

func TestHandleMessage_InitializedNotificationIsSilent(t *testing.T) {
	s := newTestServer(t)
	respBytes, err := s.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	assert.Nil(t, respBytes)
}

func TestHandleMessage_ParseError(t *testing.T) {
	s := newTestServer(t)
	resp := handle(t, s, `{not json`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ParseError, resp.Error.Code)
}

func TestHandleMessage_InvalidRequest(t *testing.T) {
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc":"1.0","id":1,"method":"tools/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)
}

func TestHandleMessage_MethodNotFound(t *testing.T) {
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.MethodNotFound, resp.Error.Code)
}

func TestHandleMessage_ToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)

	require.Nil(t, resp.Error)
	var result protocol.ToolListResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "execute_sql", result.Tools[0].Name)
	assert.Equal(t, "object", result.Tools[0].InputSchema["type"])
}

func TestHandleMessage_ToolsCall(t *testing.T) {
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"execute_sql","arguments":{"sql":"SELECT count(*) FROM t"}}}`)

	require.Nil(t, resp.Error)
	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, "1247")
}

func TestHandleMessage_ToolNotFoundIsDistinct(t *testing.T) {
	// An unknown tool must come back as -32000, not -32601: tools/call
	// itself exists, the named tool does not.
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"no_such_tool","arguments":{}}}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ToolNotFound, resp.Error.Code)
	assert.NotEqual(t, protocol.MethodNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no_such_tool")
}

func TestHandleMessage_ToolsCallMissingName(t *testing.T) {
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"arguments":{}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidParams, resp.Error.Code)
}

func TestHandleMessage_ToolFailureIsResultNotError(t *testing.T) {
	// Validation failures stay inside the result payload; only unknown
	// tools surface as JSON-RPC errors.
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"execute_sql","arguments":{}}}`)

	require.Nil(t, resp.Error)
	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "error")
}

func TestHandleMessage_Ping(t *testing.T) {
	s := newTestServer(t)
	resp := handle(t, s, `{"jsonrpc":"2.0","id":7,"method":"ping"}`)
	assert.Nil(t, resp.Error)
}
