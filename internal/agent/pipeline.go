package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/parley-dev/parley/internal/observability"
	"github.com/parley-dev/parley/internal/sessions"
	"github.com/parley-dev/parley/pkg/models"
)

// PipelineConfig configures the invocation pipeline.
type PipelineConfig struct {
	// SystemPrompt is seeded into every session as its first turn.
	SystemPrompt string

	// Model is the model identifier passed to the provider. If empty,
	// the provider's default model is used.
	Model string

	// MaxTokens limits response length. 0 uses the provider default.
	MaxTokens int

	// FallbackOnRateLimit substitutes a marked placeholder response
	// when the provider is rate limited instead of surfacing the
	// failure.
	FallbackOnRateLimit bool

	// Logger for pipeline diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional; nil disables metric recording.
	Metrics *observability.Metrics
}

// Pipeline composes system prompt, retained history, and new input,
// invokes the completion provider, and classifies the outcome. All
// provider failures are recovered here and converted into a Result;
// none propagate to callers as errors.
type Pipeline struct {
	store    sessions.Store
	provider Provider
	config   PipelineConfig
	logger   *slog.Logger
}

// NewPipeline creates a pipeline over the given store and provider.
func NewPipeline(store sessions.Store, provider Provider, config PipelineConfig) *Pipeline {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    store,
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// Provider returns the configured completion provider.
func (p *Pipeline) Provider() Provider {
	return p.provider
}

// Model returns the configured model identifier.
func (p *Pipeline) Model() string {
	return p.config.Model
}

// Invoke appends the user turn to the session, sends the retained
// history to the provider, classifies the outcome, and on success
// appends the reply as a system turn so it stays visible to future
// invocations. The reply turn is appended only for genuine or fallback
// successes, never for failures.
func (p *Pipeline) Invoke(ctx context.Context, sessionID, userText string) Result {
	if err := p.seedSystemPrompt(ctx, sessionID); err != nil {
		p.logger.Error("seeding system prompt failed", "session_id", sessionID, "error", err)
		return Result{Kind: ResultOtherFailure, Message: err.Error()}
	}

	if _, err := p.store.Append(ctx, sessionID, models.Turn{Role: models.RoleUser, Content: userText}); err != nil {
		p.logger.Error("appending user turn failed", "session_id", sessionID, "error", err)
		return Result{Kind: ResultOtherFailure, Message: err.Error()}
	}

	history, err := p.store.History(ctx, sessionID)
	if err != nil {
		p.logger.Error("reading session history failed", "session_id", sessionID, "error", err)
		return Result{Kind: ResultOtherFailure, Message: err.Error()}
	}

	req := &CompletionRequest{
		Model:     p.config.Model,
		Messages:  toCompletionMessages(history),
		MaxTokens: p.config.MaxTokens,
	}

	start := time.Now()
	resp, err := p.provider.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		p.config.Metrics.RecordLLMRequest(p.provider.Name(), p.config.Model, "error", elapsed)
		result := ResultFromError(err)
		p.config.Metrics.RecordFailure(string(result.Kind))
		p.logger.Warn("completion failed",
			"session_id", sessionID,
			"provider", p.provider.Name(),
			"kind", result.Kind,
			"error", err)

		if result.Kind == ResultRateLimited && p.config.FallbackOnRateLimit {
			fallback := SimulatedSuccess()
			p.config.Metrics.RecordFallback()
			if appendErr := p.appendReply(ctx, sessionID, fallback.Text); appendErr != nil {
				return Result{Kind: ResultOtherFailure, Message: appendErr.Error()}
			}
			return fallback
		}
		return result
	}

	p.config.Metrics.RecordLLMRequest(p.provider.Name(), p.config.Model, "success", elapsed)
	if appendErr := p.appendReply(ctx, sessionID, resp.Text); appendErr != nil {
		return Result{Kind: ResultOtherFailure, Message: appendErr.Error()}
	}
	return Succeeded(resp.Text)
}

// seedSystemPrompt lazily appends the configured system prompt as the
// session's first turn. The retention policy never evicts system turns,
// so the prompt stays in front of the conversation for its lifetime.
func (p *Pipeline) seedSystemPrompt(ctx context.Context, sessionID string) error {
	if p.config.SystemPrompt == "" {
		return nil
	}
	n, err := p.store.Len(ctx, sessionID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = p.store.Append(ctx, sessionID, models.Turn{Role: models.RoleSystem, Content: p.config.SystemPrompt})
	return err
}

// appendReply stores the model's reply as a system turn, mirroring how
// the prompt itself is stored so replies survive user-turn eviction.
func (p *Pipeline) appendReply(ctx context.Context, sessionID, text string) error {
	if _, err := p.store.Append(ctx, sessionID, models.Turn{Role: models.RoleSystem, Content: text}); err != nil {
		p.logger.Error("appending reply turn failed", "session_id", sessionID, "error", err)
		return err
	}
	return nil
}

func toCompletionMessages(history []models.Turn) []CompletionMessage {
	out := make([]CompletionMessage, 0, len(history))
	for _, turn := range history {
		out = append(out, CompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	return out
}
