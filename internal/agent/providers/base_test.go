package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parley-dev/parley/internal/agent"
)

func TestRetryStopsOnNonRetryable(t *testing.T) {
	base := NewBaseProvider("test", 3, time.Millisecond)

	calls := 0
	err := base.Retry(context.Background(), transientFailure, func() error {
		calls++
		return &agent.ProviderError{Status: 429, Message: "too many requests"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("rate limit retried %d times; must fail fast for fallback classification", calls)
	}
}

func TestRetryRetriesServerErrors(t *testing.T) {
	base := NewBaseProvider("test", 3, time.Millisecond)

	calls := 0
	err := base.Retry(context.Background(), transientFailure, func() error {
		calls++
		if calls < 3 {
			return &agent.ProviderError{Status: 503, Message: "service unavailable"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v after recovery", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	base := NewBaseProvider("test", 2, time.Millisecond)

	wantErr := &agent.ProviderError{Status: 500, Message: "internal error"}
	calls := 0
	err := base.Retry(context.Background(), transientFailure, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) && err != error(wantErr) {
		t.Fatalf("Retry() error = %v, want last attempt error", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	base := NewBaseProvider("test", 5, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := base.Retry(ctx, transientFailure, func() error {
		return &agent.ProviderError{Status: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry() error = %v, want context.Canceled", err)
	}
}

func TestTransientFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &agent.ProviderError{Status: 502}, true},
		{"connection reset", &agent.ProviderError{Message: "read: connection reset by peer"}, true},
		{"rate limit", &agent.ProviderError{Status: 429}, false},
		{"auth", &agent.ProviderError{Status: 401}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := transientFailure(tc.err); got != tc.want {
				t.Fatalf("transientFailure() = %v, want %v", got, tc.want)
			}
		})
	}
}
