// Package domain defines the core domain models for the chat backend.
package domain

import "time"

// Session represents a conversation session.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a single message in a session. VectorID is the point id
// of the message's vector index entry, empty until embedding succeeds. It is
// a lookup aid only; nothing may assume it resolves.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	VectorID  string    `json:"vector_id,omitempty"`
}

// ContextCandidate is a past message surfaced by similarity search. It is
// built from a search hit, rendered into a prompt fragment and discarded.
type ContextCandidate struct {
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// SessionStats aggregates message counts and timestamps for one session.
type SessionStats struct {
	SessionID         string     `json:"session_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	TotalMessages     int        `json:"total_messages"`
	UserMessages      int        `json:"user_messages"`
	AssistantMessages int        `json:"assistant_messages"`
	FirstMessageAt    *time.Time `json:"first_message_at,omitempty"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
}

// SessionSummary is a session listing entry with its message count.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}
