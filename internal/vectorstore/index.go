// Package vectorstore defines the vector index interface and its Weaviate
// implementation. The index stores one entry per embedded chat message and
// answers similarity queries scoped by metadata filters.
package vectorstore

import (
	"context"
	"time"
)

// Entry is one stored point: an embedding vector plus the message metadata
// mirrored from the relational row at write time.
type Entry struct {
	PointID   string
	Vector    []float32
	SessionID string
	MessageID int64
	Role      string
	Content   string
	Timestamp time.Time
}

// SearchFilter restricts a similarity search.
type SearchFilter struct {
	SessionID    string
	ExcludeRoles []string
}

// Hit is one ranked search result. Score is a similarity in [0,1].
type Hit struct {
	PointID   string
	Score     float64
	MessageID int64
	SessionID string
	Role      string
	Content   string
	Timestamp string
}

// CollectionInfo describes the backing collection.
type CollectionInfo struct {
	Class      string `json:"class"`
	VectorSize int    `json:"vector_size"`
	Distance   string `json:"distance"`
	PointCount int64  `json:"point_count"`
}

// Index is the nearest-neighbor store consumed by the orchestrator.
type Index interface {
	// EnsureReady verifies connectivity and lazily creates the collection.
	// Concurrent first-access races are benign; anything else fails loudly.
	EnsureReady(ctx context.Context) error

	Upsert(ctx context.Context, entry Entry) error

	// Search returns hits at or above minScore, best first, at most limit.
	Search(ctx context.Context, vector []float32, filter SearchFilter, limit int, minScore float64) ([]Hit, error)

	// DeleteBySession removes every entry tagged with the session id and
	// returns how many matched. Zero matches is not an error.
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)

	Info(ctx context.Context) (*CollectionInfo, error)
	Health(ctx context.Context) bool
}
