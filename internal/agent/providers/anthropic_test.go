package providers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/parley-dev/parley/internal/agent"
)

func TestAnthropicRequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicProvider(AnthropicConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestAnthropicConvertMessages(t *testing.T) {
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}

	messages := []agent.CompletionMessage{
		{Role: "system", Content: "Be helpful."},
		{Role: "user", Content: "hi"},
		{Role: "system", Content: "a stored reply"},
		{Role: "user", Content: "bye"},
	}
	system, converted := p.convertMessages(messages)

	if system != "Be helpful." {
		t.Fatalf("system = %q, want the first system turn", system)
	}
	// First system turn moved out of band; the stored reply stays in
	// the message list as an assistant message.
	if len(converted) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(converted))
	}
	wantRoles := []string{"user", "assistant", "user"}
	for i, want := range wantRoles {
		if string(converted[i].Role) != want {
			t.Fatalf("message %d role = %q, want %q", i, converted[i].Role, want)
		}
	}
}

func TestAnthropicConvertSkipsEmptyContent(t *testing.T) {
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}

	_, converted := p.convertMessages([]agent.CompletionMessage{
		{Role: "user", Content: ""},
		{Role: "user", Content: "hi"},
	})
	if len(converted) != 1 {
		t.Fatalf("empty message not skipped: %d messages", len(converted))
	}
}

func TestAnthropicWrapErrorExtractsRetryAfter(t *testing.T) {
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}

	header := http.Header{}
	header.Set("Retry-After", "30")
	req, err := http.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil)
	if err != nil {
		t.Fatalf("http.NewRequest() error = %v", err)
	}
	apiErr := &anthropic.Error{
		StatusCode: 429,
		Request:    req,
		Response:   &http.Response{StatusCode: 429, Header: header},
	}
	wrapped := p.wrapError(apiErr, "claude-sonnet-4-20250514")

	perr, ok := agent.AsProviderError(wrapped)
	if !ok {
		t.Fatalf("expected ProviderError, got %T", wrapped)
	}
	if perr.RetryAfter != 30*time.Second {
		t.Fatalf("retry hint = %v, want 30s", perr.RetryAfter)
	}

	result := agent.ResultFromError(wrapped)
	if result.Kind != agent.ResultRateLimited || result.RetryAfter != 30*time.Second {
		t.Fatalf("hint lost in classification: %+v", result)
	}
	if msg := agent.UserFacingMessage(result); !strings.Contains(msg, "30") {
		t.Fatalf("rate-limit message should carry the wait seconds, got %q", msg)
	}
}

func TestRetryAfterHint(t *testing.T) {
	withHeader := func(value string) *http.Response {
		header := http.Header{}
		if value != "" {
			header.Set("Retry-After", value)
		}
		return &http.Response{Header: header}
	}

	cases := []struct {
		name string
		resp *http.Response
		want time.Duration
	}{
		{"nil response", nil, 0},
		{"no header", withHeader(""), 0},
		{"seconds", withHeader("45"), 45 * time.Second},
		{"http date ignored", withHeader("Fri, 31 Dec 1999 23:59:59 GMT"), 0},
		{"negative", withHeader("-5"), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryAfterHint(tc.resp); got != tc.want {
				t.Fatalf("retryAfterHint() = %v, want %v", got, tc.want)
			}
		})
	}
}
