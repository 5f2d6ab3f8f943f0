package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hzhu628/kontext/internal/domain"
	"github.com/hzhu628/kontext/internal/vectorstore"
)

// SaveMessage persists a message to the relational store and, when eligible,
// to the vector index. The relational write is the durability boundary: it
// either succeeds or the whole call fails. Embedding and indexing are
// best-effort enrichment; their failures are logged and the message stays
// retrievable by history, just not by similarity. Returns the stored message
// and the vector point id, "" when no vector was written.
func (s *Service) SaveMessage(ctx context.Context, sessionID, role, content string, generateEmbedding bool) (*domain.Message, string, error) {
	message := &domain.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, message); err != nil {
		return nil, "", fmt.Errorf("failed to save message: %w", err)
	}
	slog.Debug("saved message", "message_id", message.ID, "session_id", sessionID, "role", role)

	pointID := ""
	if generateEmbedding && s.embedAllowed(ctx, sessionID, role, content) {
		pointID = s.storeEmbedding(ctx, message)
	}

	if err := s.store.TouchSession(ctx, sessionID); err != nil {
		slog.Error("failed to update session timestamp", "session_id", sessionID, "error", err)
	}

	return message, pointID, nil
}

// embedAllowed consults the embedding policy. An evaluation failure never
// blocks the write path; the message is treated as embeddable.
func (s *Service) embedAllowed(ctx context.Context, sessionID, role, content string) bool {
	if s.policyEngine == nil {
		return true
	}
	decision, err := s.policyEngine.Evaluate(ctx, map[string]interface{}{
		"role":           role,
		"content":        content,
		"content_length": len(content),
		"session_id":     sessionID,
	})
	if err != nil {
		slog.Error("embedding policy evaluation failed", "error", err)
		return true
	}
	if decision == "skip" {
		slog.Debug("embedding skipped by policy", "session_id", sessionID, "role", role)
		return false
	}
	return true
}

// storeEmbedding embeds the message, upserts it into the vector index and
// back-fills the point id onto the relational row. Any failure is swallowed
// after logging; returns the point id or "".
func (s *Service) storeEmbedding(ctx context.Context, message *domain.Message) string {
	vector, err := s.embedder.Embed(ctx, message.Content)
	if err != nil {
		slog.Error("failed to generate embedding", "message_id", message.ID, "error", err)
		return ""
	}

	pointID := uuid.New().String()
	entry := vectorstore.Entry{
		PointID:   pointID,
		Vector:    vector,
		SessionID: message.SessionID,
		MessageID: message.ID,
		Role:      message.Role,
		Content:   message.Content,
		Timestamp: message.CreatedAt,
	}
	if err := s.index.Upsert(ctx, entry); err != nil {
		slog.Error("failed to store embedding", "message_id", message.ID, "error", err)
		return ""
	}

	if err := s.store.SetMessageVectorID(ctx, message.ID, pointID); err != nil {
		slog.Error("failed to back-fill vector id", "message_id", message.ID, "error", err)
	} else {
		message.VectorID = pointID
	}
	return pointID
}

// GetSessionMessages returns the session's messages in chronological order.
func (s *Service) GetSessionMessages(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	messages, err := s.store.GetMessages(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}
