// Package providers implements completion backends for the agent
// runtime: OpenAI, Anthropic, and the GitHub Models inference endpoint.
// Each provider converts the pipeline's conversation into its API
// format, wraps SDK failures into structured agent.ProviderError
// values, and retries transient failures with linear backoff.
package providers

import (
	"context"
	"strings"
	"time"

	"github.com/parley-dev/parley/internal/agent"
)

// BaseProvider holds shared retry configuration for completion
// providers.
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// NewBaseProvider creates a base provider with sane defaults.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return BaseProvider{
		name:       name,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Name returns the provider name.
func (b *BaseProvider) Name() string {
	return b.name
}

// Retry executes op with linear backoff while isRetryable approves the
// failure. The last error is returned once attempts are exhausted.
func (b *BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if isRetryable == nil || !isRetryable(err) {
			return err
		}
		if attempt >= b.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.retryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}

// transientFailure approves retries for server-side errors only.
// Rate limits are deliberately not retried here so the pipeline can
// classify them and apply its fallback policy promptly; timeouts are
// left to the transport layer that produced them.
func transientFailure(err error) bool {
	perr, ok := agent.AsProviderError(err)
	if !ok {
		return false
	}
	if perr.Status >= 500 {
		return true
	}
	msg := strings.ToLower(perr.Message)
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused")
}
