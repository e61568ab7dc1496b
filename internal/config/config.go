// Package config loads and validates the runtime configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for Parley.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Agent   AgentConfig   `yaml:"agent"`
	LLM     LLMConfig     `yaml:"llm"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP run surface.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AgentConfig configures session retention and invocation behavior.
type AgentConfig struct {
	// SystemPrompt is seeded into every session as its first turn.
	SystemPrompt string `yaml:"system_prompt"`

	// Model is the model identifier sent to the provider. Empty uses
	// the provider default.
	Model string `yaml:"model"`

	// MaxHistoryTurns bounds each session's retained history.
	MaxHistoryTurns int `yaml:"max_history_turns"`

	// FallbackOnRateLimit serves a marked placeholder response when
	// the provider is rate limited.
	FallbackOnRateLimit bool `yaml:"fallback_on_rate_limit"`

	// MaxTokens limits response length. 0 uses the provider default.
	MaxTokens int `yaml:"max_tokens"`

	// PacingDelay is an optional fixed wait before each provider
	// call. Zero disables pacing.
	PacingDelay time.Duration `yaml:"pacing_delay"`

	// ResponseRole is the role label on terminal response messages.
	// Defaults to "assistant".
	ResponseRole string `yaml:"response_role"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	// Provider is one of: openai, anthropic, github.
	Provider string `yaml:"provider"`

	// APIKey authenticates with the provider. Supports ${VAR}
	// expansion from the environment.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider endpoint (openai only).
	BaseURL string `yaml:"base_url"`

	// MaxRetries and RetryDelay tune transient-failure retries.
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format: text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Agent: AgentConfig{
			SystemPrompt:    "You are a helpful assistant.",
			MaxHistoryTurns: 50,
			ResponseRole:    "assistant",
		},
		LLM: LLMConfig{
			Provider:   "openai",
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file, expands ${VAR} references from the
// environment, and merges it over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if c.Agent.MaxHistoryTurns <= 0 {
		c.Agent.MaxHistoryTurns = defaults.Agent.MaxHistoryTurns
	}
	if c.Agent.ResponseRole == "" {
		c.Agent.ResponseRole = defaults.Agent.ResponseRole
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = defaults.LLM.MaxRetries
	}
	if c.LLM.RetryDelay <= 0 {
		c.LLM.RetryDelay = defaults.LLM.RetryDelay
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "github":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Agent.ResponseRole {
	case "assistant", "agent":
	default:
		return fmt.Errorf("unsupported response role %q", c.Agent.ResponseRole)
	}
	if c.Agent.PacingDelay < 0 {
		return fmt.Errorf("pacing_delay must not be negative")
	}
	return nil
}
