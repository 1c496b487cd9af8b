package store

import (
	"context"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"
)

// TOMLStore persists snapshots as a flat TOML file.
type TOMLStore struct {
	path string
}

// NewTOMLStore creates a store writing to path.
func NewTOMLStore(path string) *TOMLStore {
	return &TOMLStore{path: path}
}

// Load implements Store.
func (s *TOMLStore) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading snapshot %s: %w", s.path, err)
	}

	snapshot := make(map[string]string)
	if err := toml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", s.path, err)
	}
	return snapshot, nil
}

// Save implements Store. The file is replaced atomically so a reader
// never observes a half-written snapshot.
func (s *TOMLStore) Save(ctx context.Context, snapshot map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := toml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", s.path, err)
	}
	return nil
}
