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

// datascope-mcp is the tool gateway: it exposes the investigation tool
// catalog (read-only SQL, pattern search, code search) over JSON-RPC 2.0 at
// a single HTTP POST endpoint, so the agent and other frontends call tools
// remotely instead of linking them in-process.
//
// Usage:
//
//	datascope-mcp --config datascope.yaml --listen 0.0.0.0:8081
//
// Callers authenticate with a service bearer token; per-end-user data
// access tokens arrive on the X-User-Token header and are forwarded to the
// tools, never mixed with the service credential.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teradata-labs/datascope/internal/log"
	"github.com/teradata-labs/datascope/internal/version"
	"github.com/teradata-labs/datascope/pkg/config"
	"github.com/teradata-labs/datascope/pkg/mcp/server"
	"github.com/teradata-labs/datascope/pkg/tools"
	"go.uber.org/zap"
)

const serverName = "datascope-mcp"

func main() {
	cfgFile := flag.String("config", "", "config file (default: ./datascope.yaml)")
	listen := flag.String("listen", "", "listen address (overrides config)")
	serviceToken := flag.String("service-token", "", "service bearer token (overrides config)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "log format (text, json)")
	flag.Parse()

	logger := setupLogger(*logLevel, *logFormat)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *listen != "" {
		cfg.Gateway.ListenAddr = *listen
	}
	if *serviceToken != "" {
		cfg.Gateway.ServiceToken = *serviceToken
	}

	logger.Info("starting datascope-mcp gateway",
		zap.String("listen", cfg.Gateway.ListenAddr),
		zap.String("version", version.Get()),
	)

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build tool catalog", zap.Error(err))
	}
	if registry.Count() == 0 {
		logger.Warn("no tools configured; the catalog is empty")
	}

	mcpServer := server.NewMCPServer(serverName, version.Get(), logger,
		server.WithToolProvider(server.NewRegistryProvider(registry)),
	)

	var auth *server.Authenticator
	if cfg.Gateway.ServiceToken != "" {
		auth = server.NewAuthenticator(server.AuthConfig{
			ServiceToken: cfg.Gateway.ServiceToken,
			Logger:       logger,
		})
	} else {
		logger.Warn("no service token configured; gateway is unauthenticated")
	}

	transport := server.NewHTTPTransport(server.HTTPTransportConfig{
		Server: mcpServer,
		Auth:   auth,
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Gateway.ListenAddr,
		Handler:      transport,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", zap.String("addr", httpServer.Addr), zap.Strings("tools", registry.List()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("gateway server failed: %w", err)
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Fatal("gateway failed", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

// buildRegistry assembles the local tool catalog served by the gateway.
func buildRegistry(cfg *config.Config, logger *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry()

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

	return registry, nil
}

func setupLogger(level, format string) *zap.Logger {
	return log.New(level, format)
}
