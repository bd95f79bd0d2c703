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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teradata-labs/datascope/internal/log"
	"github.com/teradata-labs/datascope/internal/version"
	"github.com/teradata-labs/datascope/pkg/config"
	"go.uber.org/zap"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:     "datascope",
	Short:   "Data quality investigation agent",
	Long:    `Datascope answers "why is this data wrong?" questions by driving an LLM through read-only SQL, historical pattern search, and pipeline code search, then reporting root cause and fix.`,
	Version: version.Get(),
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./datascope.yaml)")

	// Server flags
	rootCmd.PersistentFlags().Int("port", 8080, "chat HTTP server port")
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "chat HTTP server host")

	// LLM flags
	rootCmd.PersistentFlags().String("llm-provider", "anthropic", "LLM provider (anthropic, openai)")
	rootCmd.PersistentFlags().String("llm-key", "", "LLM API key (or use env)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model (provider default when empty)")
	rootCmd.PersistentFlags().Float64("temperature", 1.0, "LLM temperature")
	rootCmd.PersistentFlags().Int("max-tokens", 4096, "maximum tokens per request")

	// Database flags
	rootCmd.PersistentFlags().String("db", "datascope.db", "SQLite conversation store path")

	// Warehouse flags
	rootCmd.PersistentFlags().String("warehouse-driver", "postgres", "warehouse driver (postgres, mysql)")
	rootCmd.PersistentFlags().String("warehouse-dsn", "", "warehouse connection string")

	// Gateway flags
	rootCmd.PersistentFlags().Bool("gateway", false, "use remote tool gateway instead of local tools")
	rootCmd.PersistentFlags().String("gateway-endpoint", "", "tool gateway URL")
	rootCmd.PersistentFlags().String("gateway-token", "", "service bearer token for the gateway")

	// Observability flags
	rootCmd.PersistentFlags().Bool("observability", true, "enable per-investigation tracing")
	rootCmd.PersistentFlags().String("trace-dir", "", "directory for gzip trace archives (log summary when empty)")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("server.host", rootCmd.PersistentFlags().Lookup("host"))

	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.api_key", rootCmd.PersistentFlags().Lookup("llm-key"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("llm-model"))
	_ = viper.BindPFlag("llm.temperature", rootCmd.PersistentFlags().Lookup("temperature"))
	_ = viper.BindPFlag("llm.max_tokens", rootCmd.PersistentFlags().Lookup("max-tokens"))

	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	_ = viper.BindPFlag("warehouse.driver", rootCmd.PersistentFlags().Lookup("warehouse-driver"))
	_ = viper.BindPFlag("warehouse.dsn", rootCmd.PersistentFlags().Lookup("warehouse-dsn"))

	_ = viper.BindPFlag("gateway.enabled", rootCmd.PersistentFlags().Lookup("gateway"))
	_ = viper.BindPFlag("gateway.endpoint", rootCmd.PersistentFlags().Lookup("gateway-endpoint"))
	_ = viper.BindPFlag("gateway.service_token", rootCmd.PersistentFlags().Lookup("gateway-token"))

	_ = viper.BindPFlag("observability.enabled", rootCmd.PersistentFlags().Lookup("observability"))
	_ = viper.BindPFlag("observability.trace_dir", rootCmd.PersistentFlags().Lookup("trace-dir"))

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger builds the process logger from the logging config.
func setupLogger(lc config.LoggingConfig) *zap.Logger {
	return log.New(lc.Level, lc.Format)
}

func main() {
	Execute()
}
