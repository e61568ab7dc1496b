package agent

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ResultKind tags the outcome of one completion invocation.
type ResultKind string

const (
	// ResultSuccess carries genuine or fallback response text.
	ResultSuccess ResultKind = "success"

	// ResultRateLimited indicates the provider rejected the call for
	// rate limiting (HTTP 429 or equivalent marker).
	ResultRateLimited ResultKind = "rate_limited"

	// ResultTimeout indicates the call timed out.
	ResultTimeout ResultKind = "timeout"

	// ResultAuthFailure indicates an authentication or credential
	// problem.
	ResultAuthFailure ResultKind = "auth_failure"

	// ResultOtherFailure carries an unclassified failure description.
	ResultOtherFailure ResultKind = "other_failure"
)

// Retriable reports whether resubmitting the message may succeed.
func (k ResultKind) Retriable() bool {
	switch k {
	case ResultRateLimited, ResultTimeout:
		return true
	default:
		return false
	}
}

// Result is the tagged outcome of one invocation attempt. It is
// produced once per attempt by the pipeline and consumed exactly once
// by the event emitter; no provider error values propagate past the
// pipeline boundary.
type Result struct {
	Kind ResultKind

	// Text is the response text. Set only for ResultSuccess.
	Text string

	// Simulated marks Text as a rate-limit fallback placeholder
	// rather than a genuine model response.
	Simulated bool

	// RetryAfter is the provider's rate-limit retry hint. Set only
	// for ResultRateLimited; zero means no hint.
	RetryAfter time.Duration

	// Message is the raw failure description. Set only for
	// ResultOtherFailure.
	Message string
}

// SimulatedResponseMarker prefixes every fallback placeholder response
// so callers and tests can distinguish simulated text from genuine
// completions. The marker is fixed; do not localize it.
const SimulatedResponseMarker = "[simulated response]"

// SimulatedResponse builds the rate-limit fallback placeholder.
func SimulatedResponse() string {
	return SimulatedResponseMarker + " The completion provider is rate limited; this placeholder was generated locally."
}

// IsSimulated reports whether text is a fallback placeholder.
func IsSimulated(text string) bool {
	return strings.HasPrefix(text, SimulatedResponseMarker)
}

// Succeeded builds a success result.
func Succeeded(text string) Result {
	return Result{Kind: ResultSuccess, Text: text}
}

// SimulatedSuccess builds the fallback success result.
func SimulatedSuccess() Result {
	return Result{Kind: ResultSuccess, Text: SimulatedResponse(), Simulated: true}
}

// ClassifyFailure maps a structured failure description to a Result.
// It is a pure function: rate-limit signals win over everything else,
// then timeouts, then authentication problems; anything left is an
// OtherFailure carrying the original description.
func ClassifyFailure(status int, code, message string, retryAfter time.Duration) Result {
	lower := strings.ToLower(message)
	lowerCode := strings.ToLower(code)

	switch {
	case status == http.StatusTooManyRequests,
		lowerCode == "rate_limit_error", lowerCode == "rate_limit_exceeded",
		strings.Contains(lower, "rate limit"), strings.Contains(lower, "rate_limit"),
		strings.Contains(lower, "too many requests"), strings.Contains(lower, "429"):
		return Result{Kind: ResultRateLimited, RetryAfter: retryAfter}

	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout,
		strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"),
		strings.Contains(lower, "deadline exceeded"), strings.Contains(lower, "etimedout"):
		return Result{Kind: ResultTimeout}

	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		lowerCode == "authentication_error", lowerCode == "invalid_api_key",
		strings.Contains(lower, "unauthorized"), strings.Contains(lower, "authentication"),
		strings.Contains(lower, "invalid api key"), strings.Contains(lower, "invalid_api_key"),
		strings.Contains(lower, "401"), strings.Contains(lower, "403"):
		return Result{Kind: ResultAuthFailure}

	default:
		return Result{Kind: ResultOtherFailure, Message: message}
	}
}

// ResultFromError converts a provider failure into a classified Result.
// Structured ProviderErrors classify on status, code, and retry hint;
// anything else classifies on its message alone.
func ResultFromError(err error) Result {
	if err == nil {
		return Result{Kind: ResultOtherFailure, Message: "unknown provider failure"}
	}
	if perr, ok := AsProviderError(err); ok {
		return ClassifyFailure(perr.Status, perr.Code, perr.Error(), perr.RetryAfter)
	}
	return ClassifyFailure(0, "", err.Error(), 0)
}

// UserFacingMessage renders the fixed, kind-specific error text for a
// failed result. Credential values are never echoed; unclassified
// failures keep the raw description for diagnostics.
func UserFacingMessage(result Result) string {
	switch result.Kind {
	case ResultRateLimited:
		if result.RetryAfter > 0 {
			return fmt.Sprintf("The model is currently rate limited. Please retry in %d seconds.", int(result.RetryAfter.Seconds()))
		}
		return "The model is currently rate limited. Please try again later."
	case ResultTimeout:
		return "The model took too long to respond, likely due to network conditions or high load. Please try again."
	case ResultAuthFailure:
		return "Authentication with the completion provider failed. Verify the configured API credentials."
	case ResultOtherFailure:
		return fmt.Sprintf("Error calling completion provider: %s", result.Message)
	default:
		return ""
	}
}
