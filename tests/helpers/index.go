package helpers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hzhu628/kontext/internal/vectorstore"
)

// MemoryIndex is a brute-force in-memory vectorstore.Index for tests.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]vectorstore.Entry

	// FailSearch forces Search to return an error.
	FailSearch bool
	// FailUpsert forces Upsert to return an error.
	FailUpsert bool
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]vectorstore.Entry)}
}

func (m *MemoryIndex) EnsureReady(ctx context.Context) error { return nil }

func (m *MemoryIndex) Upsert(ctx context.Context, entry vectorstore.Entry) error {
	if m.FailUpsert {
		return fmt.Errorf("upsert failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.PointID] = entry
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, filter vectorstore.SearchFilter, limit int, minScore float64) ([]vectorstore.Hit, error) {
	if m.FailSearch {
		return nil, fmt.Errorf("search failed")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []vectorstore.Hit
	for _, entry := range m.entries {
		if filter.SessionID != "" && entry.SessionID != filter.SessionID {
			continue
		}
		if excluded(entry.Role, filter.ExcludeRoles) {
			continue
		}
		score := cosineSimilarity(vector, entry.Vector)
		if score < minScore {
			continue
		}
		hits = append(hits, vectorstore.Hit{
			PointID:   entry.PointID,
			Score:     score,
			MessageID: entry.MessageID,
			SessionID: entry.SessionID,
			Role:      entry.Role,
			Content:   entry.Content,
			Timestamp: entry.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *MemoryIndex) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, entry := range m.entries {
		if entry.SessionID == sessionID {
			delete(m.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryIndex) Info(ctx context.Context) (*vectorstore.CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &vectorstore.CollectionInfo{
		Class:      "ChatMessage",
		Distance:   "cosine",
		PointCount: int64(len(m.entries)),
	}, nil
}

func (m *MemoryIndex) Health(ctx context.Context) bool { return true }

// Len reports the stored point count.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Get returns the stored entry for a point id.
func (m *MemoryIndex) Get(pointID string) (vectorstore.Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[pointID]
	return entry, ok
}

func excluded(role string, excludeRoles []string) bool {
	for _, r := range excludeRoles {
		if role == r {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
