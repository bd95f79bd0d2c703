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

// Package server implements a Model Context Protocol (MCP) server.
// It provides a JSON-RPC dispatcher, method handlers, an HTTP transport
// with two-token authentication, and a provider interface that exposes
// the investigation tool catalog to MCP clients.
package server

import (
	"context"
	"fmt"

	"github.com/teradata-labs/datascope/pkg/mcp/protocol"
	"github.com/teradata-labs/datascope/pkg/tools"
)

// ToolProvider supplies tools to the MCP server.
// Implementations map domain-specific capabilities to MCP tool definitions.
type ToolProvider interface {
	// ListTools returns all available tools in catalog order.
	ListTools(ctx context.Context) ([]protocol.Tool, error)

	// CallTool invokes a tool by name with the given arguments.
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*protocol.CallToolResult, error)
}

// RegistryProvider adapts a tool registry and executor to the ToolProvider
// interface. Tool-level failures come back inside the result payload; only
// an unknown tool name surfaces as a JSON-RPC error.
type RegistryProvider struct {
	registry *tools.Registry
	executor *tools.Executor
}

// NewRegistryProvider creates a ToolProvider over the given registry.
func NewRegistryProvider(registry *tools.Registry) *RegistryProvider {
	return &RegistryProvider{
		registry: registry,
		executor: tools.NewExecutor(registry),
	}
}

// ListTools returns the catalog in registration order.
func (p *RegistryProvider) ListTools(_ context.Context) ([]protocol.Tool, error) {
	catalog := p.registry.ListTools()
	result := make([]protocol.Tool, 0, len(catalog))
	for _, t := range catalog {
		result = append(result, protocol.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema().ToMap(),
		})
	}
	return result, nil
}

// CallTool executes a tool and serializes its result as a text content item.
// The payload always carries either the data fields or an error field, so
// callers never see a raw exception.
func (p *RegistryProvider) CallTool(ctx context.Context, name string, args map[string]interface{}) (*protocol.CallToolResult, error) {
	if _, ok := p.registry.Get(name); !ok {
		return nil, protocol.NewError(protocol.ToolNotFound, fmt.Sprintf("tool not found: %s", name), nil)
	}

	result := p.executor.Execute(ctx, name, args)
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			{Type: "text", Text: result.Render()},
		},
		IsError: !result.OK(),
	}, nil
}

var _ ToolProvider = (*RegistryProvider)(nil)
