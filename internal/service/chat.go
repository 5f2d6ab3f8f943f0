package service

import (
	"context"
	"log/slog"

	"github.com/hzhu628/kontext/internal/domain"
)

// ChatRequest is one user turn.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// ChatResponse is the completed turn.
type ChatResponse struct {
	Reply       string `json:"reply"`
	SessionID   string `json:"session_id"`
	ContextUsed int    `json:"context_used"`
}

// Chat runs a full turn: resolve the session, persist the user message,
// retrieve similar past messages, generate a context-aware reply and persist
// it. A generation failure leaves the already-saved user message in place,
// it is durable input regardless of whether a reply was produced.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	session, err := s.GetOrCreateSession(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.SaveMessage(ctx, session.SessionID, domain.RoleUser, req.Message, true); err != nil {
		return nil, err
	}

	candidates, err := s.RetrieveContext(ctx, session.SessionID, req.Message, 0, nil)
	if err != nil {
		return nil, err
	}
	contextBlock := s.FormatContext(candidates, 0)

	reply, err := s.GenerateReply(ctx, req.Message, contextBlock)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.SaveMessage(ctx, session.SessionID, domain.RoleAssistant, reply, true); err != nil {
		// The reply exists and the user turn is durable; losing the
		// assistant row must not fail the turn.
		slog.Error("failed to save assistant message", "session_id", session.SessionID, "error", err)
	}

	return &ChatResponse{
		Reply:       reply,
		SessionID:   session.SessionID,
		ContextUsed: len(candidates),
	}, nil
}
