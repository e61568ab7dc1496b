package providers

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/parley-dev/parley/internal/agent"
)

const openaiDefaultModel = "gpt-4o"

// OpenAIConfig configures an OpenAI-compatible provider.
type OpenAIConfig struct {
	// APIKey authenticates with the API. Required.
	APIKey string

	// BaseURL overrides the API endpoint for OpenAI-compatible
	// services. Empty uses the OpenAI default.
	BaseURL string

	// DefaultModel is used when a request names no model.
	DefaultModel string

	// MaxRetries and RetryDelay tune transient-failure retries.
	MaxRetries int
	RetryDelay time.Duration
}

// OpenAIProvider implements agent.Provider for OpenAI's chat completion
// API and for OpenAI-compatible endpoints. It is safe for concurrent
// use; each Complete call is independent.
type OpenAIProvider struct {
	BaseProvider
	client       *openai.Client
	apiKey       string
	defaultModel string
}

// NewOpenAIProvider creates an OpenAI provider. An empty API key is
// accepted for delayed configuration; Complete fails until one is set.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	return newOpenAICompatible("openai", cfg)
}

func newOpenAICompatible(name string, cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = openaiDefaultModel
	}
	return &OpenAIProvider{
		BaseProvider: NewBaseProvider(name, cfg.MaxRetries, cfg.RetryDelay),
		client:       openai.NewClientWithConfig(clientCfg),
		apiKey:       cfg.APIKey,
		defaultModel: model,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (*agent.CompletionResponse, error) {
	if p.apiKey == "" {
		return nil, agent.NewProviderError(p.Name(), req.Model, errors.New("api key not configured")).WithStatus(401)
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: p.convertMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	var resp openai.ChatCompletionResponse
	err := p.Retry(ctx, transientFailure, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, chatReq)
		return p.wrapError(callErr, model)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, agent.NewProviderError(p.Name(), model, errors.New("completion response contained no choices"))
	}

	return &agent.CompletionResponse{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (p *OpenAIProvider) Models() []agent.Model {
	return []agent.Model{
		{ID: "gpt-4o", Name: "GPT-4o", ContextSize: 128000},
		{ID: "gpt-4o-mini", Name: "GPT-4o mini", ContextSize: 128000},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextSize: 128000},
	}
}

// convertMessages maps the conversation to the chat completion format.
// Stored reply turns share the system role with the prompt; OpenAI
// accepts system messages at any position, so roles pass through as-is.
func (p *OpenAIProvider) convertMessages(messages []agent.CompletionMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return out
}

func (p *OpenAIProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		// APIError carries no response headers, so no Retry-After
		// hint can be extracted on 429s from this client.
		providerErr := agent.NewProviderError(p.Name(), model, err).
			WithStatus(apiErr.HTTPStatusCode).
			WithMessage(apiErr.Message)
		if code, ok := apiErr.Code.(string); ok {
			providerErr = providerErr.WithCode(code)
		}
		return providerErr
	}
	return agent.NewProviderError(p.Name(), model, err)
}
