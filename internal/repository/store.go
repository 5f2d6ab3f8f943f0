// Package store defines the relational storage interface and implementations.
package store

import (
	"context"

	"github.com/hzhu628/kontext/internal/domain"
)

// Store defines the interface for session and message persistence.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	TouchSession(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	SetMessageVectorID(ctx context.Context, messageID int64, vectorID string) error
	GetMessages(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error)

	// Aggregations
	GetSessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error)
	GetRecentSessions(ctx context.Context, userID string, limit int) ([]domain.SessionSummary, error)

	// Lifecycle
	Close() error
}
