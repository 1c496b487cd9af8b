// Package store persists settings snapshots.
//
// A snapshot is a flat mapping from setting name to serialized string
// value; no nesting and no type metadata. The registry re-derives
// types from live declarations, never from the snapshot. Stores only
// move snapshots in and out of a backend.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

// Store loads and saves settings snapshots.
type Store interface {
	// Load reads the persisted snapshot. A missing backend yields an
	// empty snapshot, not an error.
	Load(ctx context.Context) (map[string]string, error)

	// Save replaces the persisted snapshot.
	Save(ctx context.Context, snapshot map[string]string) error
}

// ForPath selects a file store by extension (.toml, .json, .yaml/.yml).
func ForPath(path string) (Store, error) {
	switch filepath.Ext(path) {
	case ".toml":
		return NewTOMLStore(path), nil
	case ".json":
		return NewJSONStore(path), nil
	case ".yaml", ".yml":
		return NewYAMLStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot format: %s", path)
	}
}

// MemoryStore is an in-memory Store for tests and embedding.
type MemoryStore struct {
	mu   sync.RWMutex
	snap map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snap: make(map[string]string)}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.snap), nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, snapshot map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.snap = cloneSnapshot(snapshot)
	s.mu.Unlock()
	return nil
}

func cloneSnapshot(snap map[string]string) map[string]string {
	out := make(map[string]string, len(snap))
	for k, v := range snap {
		out[k] = v
	}
	return out
}
