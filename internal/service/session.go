package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hzhu628/kontext/internal/domain"
)

// CreateSession creates a new chat session with a generated id.
func (s *Service) CreateSession(ctx context.Context, userID string) (*domain.Session, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		SessionID: uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("created new session", "session_id", session.SessionID, "user_id", userID)
	return session, nil
}

// GetSession returns the session, or nil when it does not exist.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// GetOrCreateSession returns the existing session, or creates a fresh one
// when sessionID is empty or unknown. An unknown id is not an error; the
// turn proceeds under a new session.
func (s *Service) GetOrCreateSession(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	if sessionID != "" {
		session, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		if session != nil {
			return session, nil
		}
		slog.Warn("session not found, creating new session", "session_id", sessionID)
	}
	return s.CreateSession(ctx, userID)
}

// DeleteSession removes the session and its messages from both stores.
// Vector entries go first: a session row without vectors is consistent, a
// vector without a session row is a leak. Returns false when the session
// does not exist.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	deleted, err := s.index.DeleteBySession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session vectors: %w", err)
	}
	slog.Info("deleted session vectors", "session_id", sessionID, "count", deleted)

	existed, err := s.store.DeleteSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	if !existed {
		slog.Warn("session not found", "session_id", sessionID)
	}
	return existed, nil
}
