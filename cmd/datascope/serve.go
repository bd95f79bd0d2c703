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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/teradata-labs/datascope/pkg/agent"
	"github.com/teradata-labs/datascope/pkg/server"
	"github.com/teradata-labs/datascope/pkg/session"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat API server",
	Long:  `Starts the HTTP server exposing POST /chat, GET /health, and GET /stats.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}

	store, err := session.NewStoreWithConfig(session.DBConfig{
		Path:            cfg.Database.Path,
		EncryptDatabase: cfg.Database.EncryptDatabase,
		EncryptionKey:   cfg.Database.EncryptionKey,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to open conversation store: %w", err)
	}
	defer func() { _ = store.Close() }()

	exporter, err := buildExporter(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}

	investigator := agent.NewAgent(provider, registry,
		agent.WithStore(store),
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithLogger(logger),
	)

	opts := []server.Option{server.WithStore(store)}
	if exporter != nil {
		opts = append(opts, server.WithTraceExporter(exporter))
	}
	httpServer := server.NewHTTPServer(cfg.Server.Addr(), investigator, logger, opts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return httpServer.Stop(shutdownCtx)
}
