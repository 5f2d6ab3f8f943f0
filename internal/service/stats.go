package service

import (
	"context"
	"fmt"

	"github.com/hzhu628/kontext/internal/domain"
)

// GetSessionStats returns message counts and timestamps for the session,
// or nil when the session does not exist.
func (s *Service) GetSessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	stats, err := s.store.GetSessionStats(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}
	return stats, nil
}

// GetRecentSessions lists sessions by last activity, newest first,
// optionally filtered by owner.
func (s *Service) GetRecentSessions(ctx context.Context, userID string, limit int) ([]domain.SessionSummary, error) {
	if limit <= 0 {
		limit = s.config.SessionListLimit
	}
	sessions, err := s.store.GetRecentSessions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sessions: %w", err)
	}
	return sessions, nil
}
