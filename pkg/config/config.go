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

// Package config loads datascope configuration from file, environment, and
// flags through viper. Priority: CLI flags > config file > env vars >
// defaults. Environment variables use the DATASCOPE_ prefix with dots
// replaced by underscores (DATASCOPE_SERVER_PORT, DATASCOPE_LLM_API_KEY).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is the config file base name (datascope.yaml).
const DefaultConfigFileName = "datascope"

// Config holds all datascope configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Warehouse     WarehouseConfig     `mapstructure:"warehouse"`
	Patterns      PatternsConfig      `mapstructure:"patterns"`
	CodeRepo      CodeRepoConfig      `mapstructure:"code_repo"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig holds the chat HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig holds model provider configuration.
type LLMConfig struct {
	// Provider is "anthropic" or "openai".
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Endpoint    string  `mapstructure:"endpoint"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// DatabaseConfig holds the conversation store configuration.
type DatabaseConfig struct {
	Path            string `mapstructure:"path"`
	EncryptDatabase bool   `mapstructure:"encrypt"`
	EncryptionKey   string `mapstructure:"encryption_key"`
}

// WarehouseConfig holds the read-only warehouse connection.
type WarehouseConfig struct {
	// Driver is "postgres" or "mysql".
	Driver           string `mapstructure:"driver"`
	DSN              string `mapstructure:"dsn"`
	MaxRows          int    `mapstructure:"max_rows"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	RequireUserToken bool   `mapstructure:"require_user_token"`
}

// PatternsConfig holds the pattern-index client configuration.
type PatternsConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Token    string `mapstructure:"token"`
	TopK     int    `mapstructure:"top_k"`
}

// CodeRepoConfig holds the pipeline code repository access.
type CodeRepoConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Repo      string `mapstructure:"repo"`
	Token     string `mapstructure:"token"`
	Extension string `mapstructure:"extension"`
}

// GatewayConfig holds the tool-gateway (MCP) configuration, covering both
// the gateway server binary and the agent-side client.
type GatewayConfig struct {
	// Enabled switches the agent from local tools to remote gateway tools.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the gateway URL the agent-side client connects to.
	Endpoint string `mapstructure:"endpoint"`

	// ListenAddr is the bind address of the gateway server binary.
	ListenAddr string `mapstructure:"listen_addr"`

	// ServiceToken is the shared service-to-service bearer token.
	ServiceToken string `mapstructure:"service_token"`
}

// AgentConfig holds loop tuning.
type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

// ObservabilityConfig holds tracing configuration.
type ObservabilityConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// TraceDir, when set, archives traces as gzip JSON files; otherwise
	// traces are summarized to the log.
	TraceDir string `mapstructure:"trace_dir"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file (or standard locations when
// empty), environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/datascope/")
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars + flags.
	}

	viper.SetEnvPrefix("DATASCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("llm.provider", "anthropic")
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.temperature", 1.0)

	viper.SetDefault("database.path", "datascope.db")
	viper.SetDefault("database.encrypt", false)

	viper.SetDefault("warehouse.driver", "postgres")
	viper.SetDefault("warehouse.max_rows", 15)
	viper.SetDefault("warehouse.timeout_seconds", 30)
	viper.SetDefault("warehouse.require_user_token", false)

	viper.SetDefault("patterns.top_k", 3)

	viper.SetDefault("code_repo.base_url", "https://api.github.com")
	viper.SetDefault("code_repo.extension", "sql")

	viper.SetDefault("gateway.enabled", false)
	viper.SetDefault("gateway.listen_addr", "0.0.0.0:8081")

	viper.SetDefault("agent.max_iterations", 5)

	viper.SetDefault("observability.enabled", true)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}
