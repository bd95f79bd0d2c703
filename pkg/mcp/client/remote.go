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

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/teradata-labs/datascope/pkg/mcp/protocol"
	"github.com/teradata-labs/datascope/pkg/tools"
)

// RemoteTool exposes one gateway tool as a local catalog entry, so the
// agent binds remote and local catalogs identically. Gateway failures
// degrade to soft results; nothing raises past the executor.
type RemoteTool struct {
	client *Client
	def    protocol.Tool
	schema *tools.JSONSchema
}

// LoadRemoteTools fetches the gateway catalog and wraps each entry.
func LoadRemoteTools(ctx context.Context, c *Client) ([]tools.Tool, error) {
	defs, err := c.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load remote catalog: %w", err)
	}

	catalog := make([]tools.Tool, 0, len(defs))
	for _, def := range defs {
		catalog = append(catalog, &RemoteTool{
			client: c,
			def:    def,
			schema: schemaFromMap(def.InputSchema),
		})
	}
	return catalog, nil
}

// Name returns the tool's catalog identifier.
func (t *RemoteTool) Name() string { return t.def.Name }

// Description returns the gateway-provided description.
func (t *RemoteTool) Description() string { return t.def.Description }

// InputSchema returns the gateway-provided parameter schema.
func (t *RemoteTool) InputSchema() *tools.JSONSchema { return t.schema }

// Execute calls the tool through the gateway. A payload carrying an error
// field, an unknown-tool response, and a transport failure all come back as
// soft results the LLM can read.
func (t *RemoteTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	payload, err := t.client.CallTool(ctx, t.def.Name, params)
	if err != nil {
		var rpcErr *protocol.Error
		if errors.As(err, &rpcErr) && rpcErr.Code == protocol.ToolNotFound {
			return tools.Errorf(tools.ErrToolNotFound, rpcErr.Message), nil
		}
		return tools.Errorf(tools.ErrTransport, fmt.Sprintf("gateway call failed: %v", err)), nil
	}

	if errText, ok := payload["error"].(string); ok && errText != "" {
		return &tools.Result{
			Data:  payload,
			Error: &tools.Error{Code: tools.ErrExecution, Message: errText},
		}, nil
	}

	return &tools.Result{Data: payload}, nil
}

// schemaFromMap converts a wire-form JSON Schema into the typed form the
// local executor validates against.
func schemaFromMap(m map[string]interface{}) *tools.JSONSchema {
	fallback := &tools.JSONSchema{Type: "object"}
	if m == nil {
		return fallback
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fallback
	}
	var s tools.JSONSchema
	if err := json.Unmarshal(b, &s); err != nil {
		return fallback
	}
	if s.Type == "" {
		s.Type = "object"
	}
	return &s
}

var _ tools.Tool = (*RemoteTool)(nil)
