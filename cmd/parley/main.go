// Package main provides the CLI entry point for the Parley agent runtime.
//
// Parley answers conversational requests against an LLM provider
// (OpenAI, Anthropic, GitHub Models) while keeping a bounded per-session
// history and streaming run progress as events.
//
// # Basic Usage
//
// Start the server:
//
//	parley serve --config parley.yaml
//
// Talk to the agent from a terminal:
//
//	parley chat --config parley.yaml
//
// # Environment Variables
//
// Configuration values may reference environment variables; common ones:
//
//   - OPENAI_API_KEY: OpenAI API key for GPT models
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - GITHUB_TOKEN: token for the GitHub Models inference endpoint
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/parley-dev/parley/internal/agent"
	"github.com/parley-dev/parley/internal/agent/providers"
	"github.com/parley-dev/parley/internal/config"
	"github.com/parley-dev/parley/internal/observability"
	"github.com/parley-dev/parley/internal/sessions"
	"github.com/parley-dev/parley/internal/web"
	"github.com/parley-dev/parley/pkg/models"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "parley",
		Short: "Parley - conversational agent runtime",
		Long: `Parley serves a session-scoped conversational agent backed by an LLM provider.

Supported providers: OpenAI (GPT), Anthropic (Claude), GitHub Models
Runs stream progress and responses as ordered events.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildChatCmd(),
	)

	return rootCmd
}

// buildServeCmd creates the "serve" command that starts the HTTP server.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Parley agent server",
		Long: `Start the HTTP server exposing the run, health, and metrics endpoints.

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  parley serve

  # Start with custom config
  parley serve --config /etc/parley/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml",
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

// runServe implements the serve command logic.
func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Logging, debug)

	slog.Info("starting Parley server",
		"version", version,
		"config", configPath,
		"provider", cfg.LLM.Provider,
	)

	metrics := observability.NewMetrics()
	runtime, err := buildRuntime(cfg, metrics)
	if err != nil {
		return err
	}

	handler := web.NewHandler(&web.Config{
		Runtime: runtime,
		Logger:  slog.Default(),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	slog.Info("Parley server stopped gracefully")
	return nil
}

// buildChatCmd creates the "chat" command, an interactive terminal session
// against the configured provider.
func buildChatCmd() *cobra.Command {
	var (
		configPath string
		sessionID  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent from the terminal",
		Long: `Open an interactive session. Each line you type is sent as a user
message; progress notifications and responses are printed as they arrive.

Type "exit" or press Ctrl-D to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), configPath, sessionID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml",
		"Path to YAML configuration file")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "",
		"Session ID to resume (defaults to a fresh session)")

	return cmd
}

// runChat implements the chat REPL.
func runChat(ctx context.Context, configPath, sessionID string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Logging, false)

	runtime, err := buildRuntime(cfg, nil)
	if err != nil {
		return err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	fmt.Printf("session %s (provider %s). Type 'exit' to quit.\n", sessionID, cfg.LLM.Provider)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		input := []models.Message{models.TextMessage(models.RoleUser, line)}
		for event := range runtime.Process(ctx, sessionID, input) {
			switch event.Type {
			case models.RunEventThought:
				fmt.Printf("... %s\n", event.Thought.Thought)
			case models.RunEventMessageCompleted:
				fmt.Println(agent.ExtractText(event.Response.Message))
			case models.RunEventMessageError:
				fmt.Printf("error: %s\n", event.Error.Message)
			}
		}
	}
	return scanner.Err()
}

// loadConfig loads the config file, falling back to defaults when the
// default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "parley.yaml" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setupLogging reconfigures the default logger from the logging config.
func setupLogging(cfg config.LoggingConfig, debug bool) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// buildRuntime wires the session store, provider, pipeline, and runtime
// from configuration.
func buildRuntime(cfg *config.Config, metrics *observability.Metrics) (*agent.Runtime, error) {
	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}

	store := sessions.NewMemoryStore(cfg.Agent.MaxHistoryTurns)
	pipeline := agent.NewPipeline(store, provider, agent.PipelineConfig{
		SystemPrompt:        cfg.Agent.SystemPrompt,
		Model:               cfg.Agent.Model,
		MaxTokens:           cfg.Agent.MaxTokens,
		FallbackOnRateLimit: cfg.Agent.FallbackOnRateLimit,
		Logger:              slog.Default(),
		Metrics:             metrics,
	})

	runtime := agent.NewRuntime(pipeline, store, sessions.NewSessionLocker(), agent.RuntimeConfig{
		ResponseRole: models.Role(cfg.Agent.ResponseRole),
		PacingDelay:  cfg.Agent.PacingDelay,
		Logger:       slog.Default(),
		Metrics:      metrics,
	})
	return runtime, nil
}

// buildProvider constructs the completion provider named in the config.
func buildProvider(cfg config.LLMConfig) (agent.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		}), nil
	case "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		})
	case "github":
		return providers.NewGitHubProvider(providers.GitHubConfig{
			Token:      cfg.APIKey,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
