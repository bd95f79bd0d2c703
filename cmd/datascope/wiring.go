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
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/teradata-labs/datascope/internal/version"
	"github.com/teradata-labs/datascope/pkg/config"
	"github.com/teradata-labs/datascope/pkg/llm/anthropic"
	"github.com/teradata-labs/datascope/pkg/llm/openai"
	mcpclient "github.com/teradata-labs/datascope/pkg/mcp/client"
	"github.com/teradata-labs/datascope/pkg/observability"
	"github.com/teradata-labs/datascope/pkg/tools"
	"github.com/teradata-labs/datascope/pkg/types"
	"go.uber.org/zap"
)

// buildProvider selects the LLM backend from config, with API keys falling
// back to the conventional environment variables.
func buildProvider(cfg *config.Config) (types.LLMProvider, error) {
	switch cfg.LLM.Provider {
	case "", "anthropic":
		key := cfg.LLM.APIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("anthropic API key required (--llm-key or ANTHROPIC_API_KEY)")
		}
		return anthropic.NewClient(anthropic.Config{
			APIKey:      key,
			Model:       cfg.LLM.Model,
			Endpoint:    cfg.LLM.Endpoint,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}), nil
	case "openai":
		key := cfg.LLM.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openai API key required (--llm-key or OPENAI_API_KEY)")
		}
		return openai.NewClient(openai.Config{
			APIKey:      key,
			Model:       cfg.LLM.Model,
			Endpoint:    cfg.LLM.Endpoint,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLM.Provider)
	}
}

// buildRegistry assembles the tool catalog: remote gateway tools when the
// gateway is enabled, local tool implementations otherwise.
func buildRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	if cfg.Gateway.Enabled {
		if cfg.Gateway.Endpoint == "" {
			return nil, fmt.Errorf("gateway endpoint required when gateway is enabled")
		}
		client := mcpclient.NewClient(mcpclient.Config{
			Endpoint: cfg.Gateway.Endpoint,
			Tokens:   mcpclient.StaticTokenSource(cfg.Gateway.ServiceToken),
			Name:     "datascope",
			Version:  version.Get(),
			Logger:   logger,
		})
		if err := client.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("gateway handshake failed: %w", err)
		}
		remote, err := mcpclient.LoadRemoteTools(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("failed to load gateway tools: %w", err)
		}
		for _, t := range remote {
			registry.Register(t)
		}
		logger.Info("loaded gateway tools",
			zap.String("endpoint", cfg.Gateway.Endpoint),
			zap.Int("count", registry.Count()),
		)
		return registry, nil
	}

	if cfg.Warehouse.DSN != "" {
		sqlTool, err := tools.NewSQLTool(tools.SQLToolConfig{
			Driver:           cfg.Warehouse.Driver,
			DSN:              cfg.Warehouse.DSN,
			MaxRows:          cfg.Warehouse.MaxRows,
			Timeout:          time.Duration(cfg.Warehouse.TimeoutSeconds) * time.Second,
			RequireUserToken: cfg.Warehouse.RequireUserToken,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open warehouse: %w", err)
		}
		registry.Register(sqlTool)
		registry.Register(tools.NewTableSchemaTool(sqlTool))
	} else {
		logger.Warn("no warehouse DSN configured; SQL tools disabled")
	}

	if cfg.Patterns.Endpoint != "" {
		registry.Register(tools.NewPatternSearchTool(tools.PatternSearchConfig{
			Endpoint: cfg.Patterns.Endpoint,
			Token:    cfg.Patterns.Token,
			TopK:     cfg.Patterns.TopK,
		}, logger))
	}

	if cfg.CodeRepo.Repo != "" {
		repoCfg := tools.CodeRepoConfig{
			BaseURL:   cfg.CodeRepo.BaseURL,
			Repo:      cfg.CodeRepo.Repo,
			Token:     cfg.CodeRepo.Token,
			Extension: cfg.CodeRepo.Extension,
		}
		registry.Register(tools.NewCodeSearchTool(repoCfg, logger))
		registry.Register(tools.NewFileTool(repoCfg, logger))
		registry.Register(tools.NewListSQLFilesTool(repoCfg, logger))
	}

	logger.Info("registered local tools", zap.Strings("tools", registry.List()))
	return registry, nil
}

// buildExporter returns the trace exporter, or nil when tracing is disabled.
func buildExporter(cfg *config.Config, logger *zap.Logger) (observability.Exporter, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	if cfg.Observability.TraceDir != "" {
		return observability.NewFileExporter(cfg.Observability.TraceDir)
	}
	return observability.NewLogExporter(logger), nil
}
