// Package helpers provides shared test fixtures: an in-memory sqlite store,
// an in-memory vector index and deterministic embedding/generation fakes.
package helpers

import (
	"testing"

	"github.com/hzhu628/kontext/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
