package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hzhu628/kontext/internal/adapter/ollama"
	"github.com/hzhu628/kontext/internal/domain"
	"github.com/hzhu628/kontext/internal/vectorstore"
)

const contextInstruction = "Use this context to inform your response when relevant, otherwise answer from general knowledge."

// RetrieveContext finds past messages in the session similar to the query.
// Retrieval is enrichment: embedding or search failure degrades to an empty
// result, never an error. Results are capped at limit, thresholded by the
// configured minimum score and ordered best first.
func (s *Service) RetrieveContext(ctx context.Context, sessionID, query string, limit int, excludeRoles []string) ([]domain.ContextCandidate, error) {
	if limit <= 0 {
		limit = s.config.RetrievalTopK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		slog.Error("failed to embed query", "session_id", sessionID, "error", err)
		return []domain.ContextCandidate{}, nil
	}

	filter := vectorstore.SearchFilter{
		SessionID:    sessionID,
		ExcludeRoles: excludeRoles,
	}
	hits, err := s.index.Search(ctx, vector, filter, limit, s.config.ScoreThreshold)
	if err != nil {
		slog.Error("failed to search vector index", "session_id", sessionID, "error", err)
		return []domain.ContextCandidate{}, nil
	}

	candidates := make([]domain.ContextCandidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, domain.ContextCandidate{
			Role:      hit.Role,
			Content:   hit.Content,
			Score:     hit.Score,
			Timestamp: hit.Timestamp,
		})
	}
	// Ranked by the index already; re-sort stably so equal scores keep
	// index order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	slog.Info("retrieved context", "session_id", sessionID, "count", len(candidates))
	return candidates, nil
}

// FormatContext renders candidates into a prompt block. Candidates are taken
// greedily in order; a candidate whose line would push the accumulated line
// length past maxLength ends the scan. Whole lines only. Returns "" when
// nothing fits.
func (s *Service) FormatContext(candidates []domain.ContextCandidate, maxLength int) string {
	if len(candidates) == 0 {
		return ""
	}
	if maxLength <= 0 {
		maxLength = s.config.MaxContextLength
	}

	var lines []string
	total := 0
	for _, c := range candidates {
		line := fmt.Sprintf("[%s] %s (relevance: %.2f)", capitalize(c.Role), c.Content, c.Score)
		if total+len(line) > maxLength {
			break
		}
		lines = append(lines, line)
		total += len(line)
	}
	if len(lines) == 0 {
		return ""
	}

	parts := append([]string{"Previously discussed (relevant context):", "---"}, lines...)
	parts = append(parts, "---")
	return strings.Join(parts, "\n")
}

// GenerateReply calls the generation model with the system prompt, the
// context block when present, and the user message. Upstream errors
// propagate untouched; the caller owns retry policy.
func (s *Service) GenerateReply(ctx context.Context, userMessage, contextBlock string) (string, error) {
	systemPrompt := "You are a helpful assistant."
	if contextBlock != "" {
		systemPrompt = systemPrompt + "\n\n" + contextBlock + "\n\n" + contextInstruction
	}

	messages := []ollama.ChatMessage{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: userMessage},
	}
	return s.generator.Chat(ctx, messages)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
