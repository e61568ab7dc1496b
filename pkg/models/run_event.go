package models

import (
	"time"
)

// RunEvent is the unified event model for streaming a run's progress back
// to the hosting dispatcher. It drives the HTTP run surface, the local
// chat REPL, and logging.
//
// Design principles:
//   - Versioned and forward-compatible (add fields, don't rename/remove)
//   - Single Type discriminator with optional payload pointers
//   - Monotonic Sequence for ordering guarantees across goroutines
type RunEvent struct {
	// Version for forward compatibility. Current version: 1.
	Version int `json:"version"`

	// Type identifies the kind of event.
	Type RunEventType `json:"type"`

	// Time is when the event occurred.
	Time time.Time `json:"time"`

	// Sequence is monotonic within a run for ordering guarantees.
	Sequence uint64 `json:"seq"`

	// RunID identifies the Process call that produced the event.
	RunID string `json:"run_id,omitempty"`

	// SessionID identifies the conversation the run belongs to.
	SessionID string `json:"session_id,omitempty"`

	// MessageIndex is the 0-based index of the input message the event
	// refers to, for thought and terminal events.
	MessageIndex int `json:"message_index,omitempty"`

	// Exactly one payload should be non-nil for a given Type.
	Thought  *ThoughtEventPayload  `json:"thought,omitempty"`
	Response *ResponseEventPayload `json:"response,omitempty"`
	Error    *ErrorEventPayload    `json:"error,omitempty"`
}

// RunEventType identifies the kind of run event.
type RunEventType string

const (
	// Run lifecycle
	RunEventStarted  RunEventType = "run.started"
	RunEventFinished RunEventType = "run.finished"

	// RunEventThought is a progress notification emitted while a message
	// is being processed, always before that message's terminal event.
	RunEventThought RunEventType = "thought"

	// Terminal events, exactly one per non-empty input message.
	RunEventMessageCompleted RunEventType = "message.completed"
	RunEventMessageError     RunEventType = "message.error"
)

// Terminal reports whether the event type resolves an input message.
func (t RunEventType) Terminal() bool {
	return t == RunEventMessageCompleted || t == RunEventMessageError
}

// ThoughtEventPayload carries a progress notification.
type ThoughtEventPayload struct {
	Thought string `json:"thought"`
}

// ResponseEventPayload carries a terminal success response.
type ResponseEventPayload struct {
	// Message is the assistant response in the multi-part message format.
	Message Message `json:"message"`

	// Provider/Model for debugging (optional).
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Simulated is true when the text is a rate-limit fallback
	// placeholder rather than a genuine model response.
	Simulated bool `json:"simulated,omitempty"`
}

// ErrorEventPayload carries a terminal, user-facing error.
type ErrorEventPayload struct {
	// Message is the human-readable error text.
	Message string `json:"message"`

	// Kind is the invocation failure classification (rate_limited,
	// timeout, auth_failure, other).
	Kind string `json:"kind,omitempty"`

	// Retriable hints whether resubmitting the message may succeed.
	Retriable bool `json:"retriable,omitempty"`
}
