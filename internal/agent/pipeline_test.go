package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/parley-dev/parley/internal/sessions"
	"github.com/parley-dev/parley/pkg/models"
)

// fakeProvider records requests and replies via a configurable handler.
type fakeProvider struct {
	mu       sync.Mutex
	requests []*CompletionRequest
	handler  func(req *CompletionRequest) (*CompletionResponse, error)
}

func (f *fakeProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.handler != nil {
		return f.handler(req)
	}
	return &CompletionResponse{Text: "ok"}, nil
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) Models() []Model { return nil }

func (f *fakeProvider) lastRequest() *CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func newTestPipeline(provider *fakeProvider, fallback bool) (*Pipeline, *sessions.MemoryStore) {
	store := sessions.NewMemoryStore(10)
	pipeline := NewPipeline(store, provider, PipelineConfig{
		SystemPrompt:        "Be helpful.",
		Model:               "test-model",
		FallbackOnRateLimit: fallback,
	})
	return pipeline, store
}

func TestPipelineSuccessAppendsReply(t *testing.T) {
	provider := &fakeProvider{handler: func(req *CompletionRequest) (*CompletionResponse, error) {
		return &CompletionResponse{Text: "hello back"}, nil
	}}
	pipeline, store := newTestPipeline(provider, false)

	result := pipeline.Invoke(context.Background(), "s1", "hi")
	if result.Kind != ResultSuccess || result.Text != "hello back" {
		t.Fatalf("Invoke() = %+v, want success with reply", result)
	}
	if result.Simulated {
		t.Fatal("genuine response flagged as simulated")
	}

	history, _ := store.History(context.Background(), "s1")
	wantTurns := []struct {
		role    models.Role
		content string
	}{
		{models.RoleSystem, "Be helpful."},
		{models.RoleUser, "hi"},
		{models.RoleSystem, "hello back"},
	}
	if len(history) != len(wantTurns) {
		t.Fatalf("expected %d turns, got %d: %+v", len(wantTurns), len(history), history)
	}
	for i, want := range wantTurns {
		if history[i].Role != want.role || history[i].Content != want.content {
			t.Fatalf("turn %d = {%s %q}, want {%s %q}", i, history[i].Role, history[i].Content, want.role, want.content)
		}
	}
}

func TestPipelineSendsExactRetainedHistory(t *testing.T) {
	provider := &fakeProvider{}
	pipeline, store := newTestPipeline(provider, false)
	ctx := context.Background()

	pipeline.Invoke(ctx, "s1", "first")
	pipeline.Invoke(ctx, "s1", "second")

	history, _ := store.History(ctx, "s1")
	req := provider.lastRequest()
	if req == nil {
		t.Fatal("provider was not called")
	}
	// The last request reflects history at call time: everything
	// retained except the reply appended after the call returned.
	if len(req.Messages) != len(history)-1 {
		t.Fatalf("request has %d messages, retained history (pre-reply) had %d", len(req.Messages), len(history)-1)
	}
	for i, msg := range req.Messages {
		if msg.Role != string(history[i].Role) || msg.Content != history[i].Content {
			t.Fatalf("request message %d = {%s %q}, history turn = {%s %q}",
				i, msg.Role, msg.Content, history[i].Role, history[i].Content)
		}
	}
	if req.Model != "test-model" {
		t.Fatalf("request model = %q, want test-model", req.Model)
	}
}

func TestPipelineSeedsSystemPromptOnce(t *testing.T) {
	provider := &fakeProvider{}
	pipeline, store := newTestPipeline(provider, false)
	ctx := context.Background()

	pipeline.Invoke(ctx, "s1", "one")
	pipeline.Invoke(ctx, "s1", "two")

	history, _ := store.History(ctx, "s1")
	prompts := 0
	for _, turn := range history {
		if turn.Content == "Be helpful." {
			prompts++
		}
	}
	if prompts != 1 {
		t.Fatalf("system prompt seeded %d times, want 1", prompts)
	}
}

func TestPipelineRateLimitFallbackEnabled(t *testing.T) {
	provider := &fakeProvider{handler: func(req *CompletionRequest) (*CompletionResponse, error) {
		return nil, &ProviderError{Provider: "fake", Status: 429, Message: "too many requests"}
	}}
	pipeline, store := newTestPipeline(provider, true)

	result := pipeline.Invoke(context.Background(), "s1", "hi")
	if result.Kind != ResultSuccess {
		t.Fatalf("expected fallback success, got %+v", result)
	}
	if !result.Simulated || !IsSimulated(result.Text) {
		t.Fatalf("fallback must be marked simulated: %+v", result)
	}

	history, _ := store.History(context.Background(), "s1")
	last := history[len(history)-1]
	if last.Role != models.RoleSystem || !IsSimulated(last.Content) {
		t.Fatalf("fallback reply not appended as marked system turn: %+v", last)
	}
}

func TestPipelineRateLimitFallbackDisabled(t *testing.T) {
	provider := &fakeProvider{handler: func(req *CompletionRequest) (*CompletionResponse, error) {
		return nil, &ProviderError{Provider: "fake", Message: "upstream returned 429"}
	}}
	pipeline, store := newTestPipeline(provider, false)

	result := pipeline.Invoke(context.Background(), "s1", "hi")
	if result.Kind != ResultRateLimited {
		t.Fatalf("expected rate limited, got %+v", result)
	}
	if result.RetryAfter != 0 {
		t.Fatalf("no retry header supplied, got hint %v", result.RetryAfter)
	}
	if msg := UserFacingMessage(result); msg != "The model is currently rate limited. Please try again later." {
		t.Fatalf("expected generic rate-limit text, got %q", msg)
	}

	// No turn is appended for a fabricated response.
	history, _ := store.History(context.Background(), "s1")
	for _, turn := range history {
		if turn.Role == models.RoleSystem && turn.Content != "Be helpful." {
			t.Fatalf("unexpected reply turn appended on failure: %+v", turn)
		}
	}
}

func TestPipelineRateLimitRetryHintPropagates(t *testing.T) {
	provider := &fakeProvider{handler: func(req *CompletionRequest) (*CompletionResponse, error) {
		return nil, &ProviderError{Status: 429, Message: "too many requests", RetryAfter: 15 * time.Second}
	}}
	pipeline, _ := newTestPipeline(provider, false)

	result := pipeline.Invoke(context.Background(), "s1", "hi")
	if result.Kind != ResultRateLimited || result.RetryAfter != 15*time.Second {
		t.Fatalf("retry hint lost: %+v", result)
	}
}

func TestPipelineClassifiesFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ResultKind
	}{
		{"timeout", &ProviderError{Message: "request timed out"}, ResultTimeout},
		{"auth", &ProviderError{Status: 401, Message: "bad key"}, ResultAuthFailure},
		{"other", &ProviderError{Status: 500, Message: "internal error"}, ResultOtherFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{handler: func(req *CompletionRequest) (*CompletionResponse, error) {
				return nil, tc.err
			}}
			pipeline, _ := newTestPipeline(provider, true)
			result := pipeline.Invoke(context.Background(), "s1", "hi")
			if result.Kind != tc.want {
				t.Fatalf("Invoke() kind = %q, want %q", result.Kind, tc.want)
			}
		})
	}
}
