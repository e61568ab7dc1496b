package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/parley-dev/parley/internal/agent"
)

const (
	anthropicDefaultModel     = "claude-sonnet-4-20250514"
	anthropicDefaultMaxTokens = 4096
)

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	// APIKey authenticates with the Anthropic API. Required.
	APIKey string

	// BaseURL overrides the API endpoint. Empty uses the default.
	BaseURL string

	// DefaultModel is used when a request names no model.
	DefaultModel string

	// MaxRetries and RetryDelay tune transient-failure retries.
	MaxRetries int
	RetryDelay time.Duration
}

// AnthropicProvider implements agent.Provider for Claude models. It is
// safe for concurrent use; each Complete call is independent.
type AnthropicProvider struct {
	BaseProvider
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = anthropicDefaultModel
	}
	return &AnthropicProvider{
		BaseProvider: NewBaseProvider("anthropic", cfg.MaxRetries, cfg.RetryDelay),
		client:       anthropic.NewClient(options...),
		defaultModel: model,
	}, nil
}

func (p *AnthropicProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (*agent.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	system, converted := p.convertMessages(req.Messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  converted,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	var msg *anthropic.Message
	err := p.Retry(ctx, transientFailure, func() error {
		var callErr error
		msg, callErr = p.client.Messages.New(ctx, params)
		return p.wrapError(callErr, model)
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &agent.CompletionResponse{
		Text:         text.String(),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

func (p *AnthropicProvider) Models() []agent.Model {
	return []agent.Model{
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextSize: 200000},
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ContextSize: 200000},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ContextSize: 200000},
	}
}

// convertMessages maps the conversation to Anthropic's format. The API
// takes the system prompt out of band and rejects system-role turns in
// the message list, so the first system turn becomes the system
// parameter and later system turns (stored model replies) become
// assistant messages.
func (p *AnthropicProvider) convertMessages(messages []agent.CompletionMessage) (string, []anthropic.MessageParam) {
	var system string
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case "system":
			if system == "" {
				system = msg.Content
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return system, out
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (p *AnthropicProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		providerErr := agent.NewProviderError(p.Name(), model, err).
			WithStatus(apiErr.StatusCode)
		if hint := retryAfterHint(apiErr.Response); hint > 0 {
			providerErr = providerErr.WithRetryAfter(hint)
		}

		message := ""
		code := ""
		requestID := apiErr.RequestID

		if raw := apiErr.RawJSON(); raw != "" {
			var payload anthropicErrorPayload
			if json.Unmarshal([]byte(raw), &payload) == nil {
				message = payload.Error.Message
				code = payload.Error.Type
				if payload.RequestID != "" {
					requestID = payload.RequestID
				}
			}
		}

		if message != "" {
			providerErr = providerErr.WithMessage(message)
		} else if providerErr.Message == "" {
			providerErr = providerErr.WithMessage("anthropic request failed")
		}
		if code != "" {
			providerErr = providerErr.WithCode(code)
		}
		if requestID != "" {
			providerErr = providerErr.WithRequestID(requestID)
		}
		return providerErr
	}

	return agent.NewProviderError(p.Name(), model, err)
}

// retryAfterHint reads the Retry-After response header. Only the
// delta-seconds form is parsed; HTTP-date values are ignored.
func retryAfterHint(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	raw := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
