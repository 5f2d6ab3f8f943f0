package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzhu628/kontext/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createTestSession(t *testing.T, s *SQLiteStore, userID string) *domain.Session {
	t.Helper()
	now := time.Now().UTC()
	session := &domain.Session{
		SessionID: uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateSession(context.Background(), session))
	return session
}

func TestSessionCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := createTestSession(t, s, "alice")

	got, err := s.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.SessionID, got.SessionID)
	assert.Equal(t, "alice", got.UserID)

	got, err = s.GetSession(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, got)

	existed, err := s.DeleteSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.DeleteSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestSessionWithoutUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := createTestSession(t, s, "")

	got, err := s.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.UserID)
}

func TestTouchSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := &domain.Session{
		SessionID: uuid.New().String(),
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, s.CreateSession(ctx, session))
	require.NoError(t, s.TouchSession(ctx, session.SessionID))

	got, err := s.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(session.UpdatedAt))
}

func TestMessageOrderingAndPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := createTestSession(t, s, "alice")

	// Identical timestamps force the id tie-break.
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		msg := &domain.Message{
			SessionID: session.SessionID,
			Role:      domain.RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: now,
		}
		require.NoError(t, s.CreateMessage(ctx, msg))
		assert.Greater(t, msg.ID, int64(0))
	}

	messages, err := s.GetMessages(ctx, session.SessionID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	for i, msg := range messages {
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Content)
	}

	messages, err = s.GetMessages(ctx, session.SessionID, 2, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "message 0", messages[0].Content)

	messages, err = s.GetMessages(ctx, session.SessionID, 2, 3)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "message 3", messages[0].Content)

	messages, err = s.GetMessages(ctx, session.SessionID, 0, 4)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "message 4", messages[0].Content)
}

func TestSetMessageVectorID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := createTestSession(t, s, "alice")

	msg := &domain.Message{
		SessionID: session.SessionID,
		Role:      domain.RoleUser,
		Content:   "embed me",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateMessage(ctx, msg))

	pointID := uuid.New().String()
	require.NoError(t, s.SetMessageVectorID(ctx, msg.ID, pointID))

	messages, err := s.GetMessages(ctx, session.SessionID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, pointID, messages[0].VectorID)
}

func TestDeleteSessionCascadesToMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := createTestSession(t, s, "alice")
	other := createTestSession(t, s, "bob")

	for _, sid := range []string{session.SessionID, other.SessionID} {
		msg := &domain.Message{
			SessionID: sid,
			Role:      domain.RoleUser,
			Content:   "hello",
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, s.CreateMessage(ctx, msg))
	}

	existed, err := s.DeleteSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.True(t, existed)

	messages, err := s.GetMessages(ctx, session.SessionID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	messages, err = s.GetMessages(ctx, other.SessionID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestCreateMessageUnknownSession(t *testing.T) {
	s := newTestStore(t)
	msg := &domain.Message{
		SessionID: uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   "orphan",
		CreatedAt: time.Now().UTC(),
	}
	assert.Error(t, s.CreateMessage(context.Background(), msg))
}

func TestGetSessionStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := createTestSession(t, s, "alice")

	base := time.Now().UTC().Truncate(time.Second)
	rows := []struct {
		role string
		at   time.Time
	}{
		{domain.RoleUser, base},
		{domain.RoleAssistant, base.Add(time.Second)},
		{domain.RoleUser, base.Add(2 * time.Second)},
	}
	for _, r := range rows {
		msg := &domain.Message{
			SessionID: session.SessionID,
			Role:      r.role,
			Content:   "x",
			CreatedAt: r.at,
		}
		require.NoError(t, s.CreateMessage(ctx, msg))
	}

	stats, err := s.GetSessionStats(ctx, session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.TotalMessages)
	assert.Equal(t, 2, stats.UserMessages)
	assert.Equal(t, 1, stats.AssistantMessages)
	require.NotNil(t, stats.FirstMessageAt)
	require.NotNil(t, stats.LastMessageAt)
	assert.True(t, stats.FirstMessageAt.Equal(base))
	assert.True(t, stats.LastMessageAt.Equal(base.Add(2*time.Second)))
}

func TestGetSessionStatsEmptySession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := createTestSession(t, s, "alice")

	stats, err := s.GetSessionStats(ctx, session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.TotalMessages)
	assert.Nil(t, stats.FirstMessageAt)
	assert.Nil(t, stats.LastMessageAt)
}

func TestGetSessionStatsUnknownSession(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.GetSessionStats(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestGetRecentSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := &domain.Session{
		SessionID: uuid.New().String(),
		UserID:    "alice",
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		UpdatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, s.CreateSession(ctx, old))

	recent := createTestSession(t, s, "bob")
	msg := &domain.Message{
		SessionID: recent.SessionID,
		Role:      domain.RoleUser,
		Content:   "hi",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateMessage(ctx, msg))

	sessions, err := s.GetRecentSessions(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, recent.SessionID, sessions[0].SessionID)
	assert.Equal(t, 1, sessions[0].MessageCount)
	assert.Equal(t, old.SessionID, sessions[1].SessionID)
	assert.Equal(t, 0, sessions[1].MessageCount)

	sessions, err = s.GetRecentSessions(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, old.SessionID, sessions[0].SessionID)

	sessions, err = s.GetRecentSessions(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, recent.SessionID, sessions[0].SessionID)
}
