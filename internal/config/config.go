// Package config loads Aura's process configuration from a YAML file plus
// environment overrides, following the viper precedence order the teacher
// repo's internal/config package uses (flags > env > config file > defaults).
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config is the root of Aura's process configuration.
type Config struct {
	DatabaseURL   string          `mapstructure:"database_url" yaml:"database_url"`
	WorkspaceRoot string          `mapstructure:"workspace_root" yaml:"workspace_root"`
	Providers     Providers       `mapstructure:"providers" yaml:"providers"`
	Index         IndexConfig     `mapstructure:"index" yaml:"index"`
	Agents        AgentsConfig    `mapstructure:"agents" yaml:"agents"`
	Harness       HarnessConfig   `mapstructure:"harness" yaml:"harness"`
	Telemetry     TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Triggers      []TriggerConfig `mapstructure:"triggers" yaml:"triggers"`
}

// TriggerConfig declares one cron-scheduled background action: either a
// recurring workflow run against a fixed issue template, or a periodic
// workspace reindex. Exactly one of IssueTemplate or Reindex should be set;
// Reindex takes precedence if both are present.
type TriggerConfig struct {
	ID            string `mapstructure:"id" yaml:"id"`
	Cron          string `mapstructure:"cron" yaml:"cron"`
	WorkspaceID   string `mapstructure:"workspace_id" yaml:"workspace_id"`
	Title         string `mapstructure:"title" yaml:"title"`
	IssueTemplate string `mapstructure:"issue_template" yaml:"issue_template"`
	Reindex       bool   `mapstructure:"reindex" yaml:"reindex"`
}

// Providers holds per-provider LLM client configuration.
type Providers struct {
	Default        string           `mapstructure:"default" yaml:"default"`
	DefaultModel   string           `mapstructure:"default_model" yaml:"default_model"`
	Anthropic      ProviderEndpoint `mapstructure:"anthropic" yaml:"anthropic"`
	OpenAI         ProviderEndpoint `mapstructure:"openai" yaml:"openai"`
}

// ProviderEndpoint is the credentials/base-URL pair for one LLM vendor.
type ProviderEndpoint struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// IndexConfig tunes C3's chunker and freshness policy.
type IndexConfig struct {
	ChunkSize        int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap     int    `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
	EmbeddingModel   string `mapstructure:"embedding_model" yaml:"embedding_model"`
	FreshnessIdleSec int    `mapstructure:"freshness_idle_seconds" yaml:"freshness_idle_seconds"`
}

// AgentsConfig lists directories the agent registry watches for markdown
// agent definitions.
type AgentsConfig struct {
	Directories []string `mapstructure:"directories" yaml:"directories"`
}

// HarnessConfig bounds the ReAct loop, mirroring the teacher's
// AgentHarnessConfig shape (pkg/harness/config.go).
type HarnessConfig struct {
	MaxSteps         int `mapstructure:"max_steps" yaml:"max_steps"`
	MaxRetries       int `mapstructure:"max_retries" yaml:"max_retries"`
	DoomLoopWindow   int `mapstructure:"doom_loop_window" yaml:"doom_loop_window"`
	MaxContextTokens int `mapstructure:"max_context_tokens" yaml:"max_context_tokens"`
}

// TelemetryConfig optionally points ambient tracing at an OTLP collector.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

func defaults() Config {
	return Config{
		DatabaseURL:   "",
		WorkspaceRoot: "",
		Providers: Providers{
			Default:      "anthropic",
			DefaultModel: "claude-sonnet-4-5",
		},
		Index: IndexConfig{
			ChunkSize:        1200,
			ChunkOverlap:     150,
			FreshnessIdleSec: 300,
		},
		Harness: HarnessConfig{
			MaxSteps:         25,
			MaxRetries:       3,
			DoomLoopWindow:   4,
			MaxContextTokens: 180_000,
		},
	}
}

// Load reads config from configPath if non-empty, else from
// $XDG_CONFIG_HOME/aura/config.yaml, applying AURA_-prefixed environment
// overrides on top, exactly the precedence order the teacher's viper setup
// uses.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AURA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := defaults()

	if configPath == "" {
		if p, err := xdg.ConfigFile(filepath.Join("aura", "config.yaml")); err == nil {
			configPath = p
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("config: read %s: %w", configPath, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.DatabaseURL == "" {
		dataFile, err := xdg.DataFile(filepath.Join("aura", "aura.db"))
		if err == nil {
			cfg.DatabaseURL = dataFile
		} else {
			cfg.DatabaseURL = "aura.db"
		}
	}

	return &cfg, nil
}
