// Package agent implements the conversational runtime core: message
// normalization, the invocation pipeline against an external completion
// provider, outcome classification, and the streaming event emitter.
package agent

import (
	"context"
)

// Provider defines the interface for external LLM completion backends.
//
// Implementations handle the specifics of one completion API (OpenAI,
// Anthropic, GitHub Models) while presenting a unified request/response
// interface to the pipeline. Implementations must be safe for concurrent
// use and must surface failures as *ProviderError so the pipeline can
// classify them.
type Provider interface {
	// Complete sends the conversation and returns the model's reply.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []Model
}

// CompletionRequest contains the full outbound conversation for one
// completion call. Messages are exactly the retained session history at
// call time, in ascending timestamp order.
type CompletionRequest struct {
	// Model specifies which model to use. If empty, the provider's
	// default model is used.
	Model string `json:"model"`

	// Messages is the conversation in chronological order, system and
	// user turns interleaved as retained.
	Messages []CompletionMessage `json:"messages"`

	// MaxTokens limits the response length. If 0, the provider's
	// default is used.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionMessage is a single turn of the outbound conversation.
// Role values: "system", "user".
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse is the provider's reply to a completion request.
type CompletionResponse struct {
	// Text is the generated response.
	Text string `json:"text"`

	// Model is the model that produced the response.
	Model string `json:"model,omitempty"`

	// Token counts (optional; not all providers supply them).
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Model describes an available model.
type Model struct {
	// ID is the API identifier for the model (e.g., "gpt-4o").
	ID string `json:"id"`

	// Name is the human-readable model name.
	Name string `json:"name"`

	// ContextSize is the maximum token context window.
	ContextSize int `json:"context_size"`
}
