package helpers

import (
	"context"
	"sync"

	"github.com/hzhu628/kontext/internal/adapter/ollama"
)

// ScriptedGenerator returns a fixed reply and records every request it sees.
type ScriptedGenerator struct {
	mu    sync.Mutex
	calls [][]ollama.ChatMessage

	// Reply is returned on every call. Defaults to "ok" when empty.
	Reply string
	// Err, when set, is returned instead of a reply.
	Err error
}

func (g *ScriptedGenerator) Chat(ctx context.Context, messages []ollama.ChatMessage) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, messages)

	if g.Err != nil {
		return "", g.Err
	}
	if g.Reply == "" {
		return "ok", nil
	}
	return g.Reply, nil
}

// Calls returns the recorded requests.
func (g *ScriptedGenerator) Calls() [][]ollama.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// LastCall returns the most recent request, or nil.
func (g *ScriptedGenerator) LastCall() []ollama.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return nil
	}
	return g.calls[len(g.calls)-1]
}
