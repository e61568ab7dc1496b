package models

import (
	"time"
)

// Role indicates the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentTypeText is the only part content type the runtime consumes.
// Parts with other content types are carried through but ignored.
const ContentTypeText = "text/plain"

// MessagePart is one typed segment of an inbound or outbound message.
type MessagePart struct {
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// Message is the multi-part message format exchanged with the hosting
// dispatcher. Inbound messages usually carry no role; outbound responses
// are tagged RoleAssistant.
type Message struct {
	Role  Role          `json:"role,omitempty"`
	Parts []MessagePart `json:"parts"`
}

// TextMessage builds a single-part plain-text message.
func TextMessage(role Role, content string) Message {
	return Message{
		Role:  role,
		Parts: []MessagePart{{ContentType: ContentTypeText, Content: content}},
	}
}

// Turn is one conversational exchange unit stored in session history.
// Turns are immutable once stored; Seq is assigned by the store and is
// strictly increasing within a session, breaking CreatedAt ties.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Seq       uint64    `json:"seq"`
}

// Before reports whether t was stored before other, ordering by timestamp
// with the store sequence as tiebreaker.
func (t Turn) Before(other Turn) bool {
	if t.CreatedAt.Equal(other.CreatedAt) {
		return t.Seq < other.Seq
	}
	return t.CreatedAt.Before(other.CreatedAt)
}
