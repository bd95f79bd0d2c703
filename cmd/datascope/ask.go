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
	"strings"

	"github.com/spf13/cobra"
	"github.com/teradata-labs/datascope/pkg/agent"
	"github.com/teradata-labs/datascope/pkg/observability"
	"github.com/teradata-labs/datascope/pkg/session"
)

var askConversationID string

var askCmd = &cobra.Command{
	Use:   "ask \"<question>\"",
	Short: "Run a single investigation from the command line",
	Long:  `Runs one investigation and prints the final report. Use --conversation-id to follow up on an earlier investigation.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askConversationID, "conversation-id", "", "continue an existing conversation")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	question := strings.Join(args, " ")

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := []agent.Option{
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithLogger(logger),
	}

	store, err := session.NewStoreWithConfig(session.DBConfig{
		Path:            cfg.Database.Path,
		EncryptDatabase: cfg.Database.EncryptDatabase,
		EncryptionKey:   cfg.Database.EncryptionKey,
	}, logger)
	if err == nil {
		defer func() { _ = store.Close() }()
		opts = append(opts, agent.WithStore(store))
	} else {
		logger.Warn("conversation store unavailable; investigation will not be persisted")
	}

	exporter, err := buildExporter(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	if exporter != nil {
		opts = append(opts, agent.WithTracer(observability.NewTracer(askConversationID, exporter, logger)))
	}

	investigator := agent.NewAgent(provider, registry, opts...)
	resp, err := investigator.Investigate(ctx, agent.Request{
		Question:       question,
		ConversationID: askConversationID,
	})
	if err != nil {
		return err
	}

	fmt.Println(resp.Text)
	fmt.Printf("\n(conversation %s, %.1fs)\n", resp.ConversationID, resp.DurationSeconds)
	return nil
}
