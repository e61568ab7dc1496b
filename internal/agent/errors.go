package agent

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProviderError is a structured failure from a completion provider. It
// carries the context the pipeline needs for classification: HTTP
// status, provider-specific error code, message, and an optional
// retry-after hint. Providers wrap SDK errors into this type so that a
// single pure classification path serves every backend.
type ProviderError struct {
	// Provider is the provider name (e.g., "anthropic", "openai").
	Provider string

	// Model is the model that was requested.
	Model string

	// Status is the HTTP status code, if applicable.
	Status int

	// Code is the provider-specific error code.
	Code string

	// Message is the human-readable error message.
	Message string

	// RetryAfter is the provider's retry hint for rate limits.
	// Zero means no hint was supplied.
	RetryAfter time.Duration

	// RequestID is the provider's request ID for debugging.
	RequestID string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if len(parts) == 0 {
		return "provider error"
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a ProviderError wrapping cause.
func NewProviderError(provider, model string, cause error) *ProviderError {
	err := &ProviderError{
		Provider: provider,
		Model:    model,
		Cause:    cause,
	}
	if cause != nil {
		err.Message = cause.Error()
	}
	return err
}

// WithStatus sets the HTTP status code.
func (e *ProviderError) WithStatus(status int) *ProviderError {
	e.Status = status
	return e
}

// WithCode sets the provider-specific error code.
func (e *ProviderError) WithCode(code string) *ProviderError {
	e.Code = code
	return e
}

// WithMessage sets the error message.
func (e *ProviderError) WithMessage(msg string) *ProviderError {
	e.Message = msg
	return e
}

// WithRetryAfter sets the rate-limit retry hint.
func (e *ProviderError) WithRetryAfter(d time.Duration) *ProviderError {
	e.RetryAfter = d
	return e
}

// WithRequestID sets the provider's request ID.
func (e *ProviderError) WithRequestID(id string) *ProviderError {
	e.RequestID = id
	return e
}

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}
