// Package service implements the chat orchestrator: session lifecycle,
// dual-write message persistence, context retrieval and reply generation.
package service

import (
	"context"

	"github.com/hzhu628/kontext/internal/adapter/ollama"
	"github.com/hzhu628/kontext/internal/config"
	"github.com/hzhu628/kontext/internal/repository"
	"github.com/hzhu628/kontext/internal/vectorstore"
	"github.com/hzhu628/kontext/policy"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Generator produces a chat completion for an ordered message sequence.
type Generator interface {
	Chat(ctx context.Context, messages []ollama.ChatMessage) (string, error)
}

type Service struct {
	store        store.Store
	index        vectorstore.Index
	embedder     Embedder
	generator    Generator
	policyEngine *policy.Engine
	config       *config.Config
}

func New(st store.Store, index vectorstore.Index, embedder Embedder, generator Generator, policyEngine *policy.Engine, cfg *config.Config) *Service {
	return &Service{
		store:        st,
		index:        index,
		embedder:     embedder,
		generator:    generator,
		policyEngine: policyEngine,
		config:       cfg,
	}
}
