// Package sessions provides bounded in-memory conversation history keyed
// by an opaque session identifier, plus per-session write serialization.
package sessions

import (
	"context"
	"errors"

	"github.com/parley-dev/parley/pkg/models"
)

var (
	// ErrSessionIDRequired is returned when an operation is given an
	// empty session identifier.
	ErrSessionIDRequired = errors.New("sessions: session id is required")

	// ErrInvalidRole is returned when a turn carries an unknown role.
	ErrInvalidRole = errors.New("sessions: invalid turn role")
)

// Store is the session history contract used by the invocation pipeline.
//
// Implementations must partition state by session id so that operations
// on distinct sessions never interfere, and must keep each session's
// history within the configured retention bound after every Append.
type Store interface {
	// Append inserts the turn at the end of the session's history,
	// creating the session lazily if it has never been seen, then
	// applies the retention policy. The returned turn carries the
	// store-assigned ID, timestamp, and sequence number.
	Append(ctx context.Context, sessionID string, turn models.Turn) (models.Turn, error)

	// History returns the session's retained turns in ascending
	// timestamp order. An unknown session id yields an empty slice,
	// not an error.
	History(ctx context.Context, sessionID string) ([]models.Turn, error)

	// Len returns the number of retained turns for the session.
	Len(ctx context.Context, sessionID string) (int, error)
}
