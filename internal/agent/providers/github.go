package providers

import (
	"time"
)

// GitHub Models exposes an OpenAI-compatible inference API keyed by a
// GitHub token.
const (
	githubModelsBaseURL = "https://models.github.ai/inference"
	githubDefaultModel  = "openai/gpt-5"
)

// GitHubConfig configures the GitHub Models provider.
type GitHubConfig struct {
	// Token is a GitHub token with models access. Required.
	Token string

	// DefaultModel is used when a request names no model.
	// Defaults to openai/gpt-5.
	DefaultModel string

	// MaxRetries and RetryDelay tune transient-failure retries.
	MaxRetries int
	RetryDelay time.Duration
}

// NewGitHubProvider creates a provider backed by the GitHub Models
// inference endpoint.
func NewGitHubProvider(cfg GitHubConfig) *OpenAIProvider {
	model := cfg.DefaultModel
	if model == "" {
		model = githubDefaultModel
	}
	return newOpenAICompatible("github", OpenAIConfig{
		APIKey:       cfg.Token,
		BaseURL:      githubModelsBaseURL,
		DefaultModel: model,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
	})
}
