package store

import (
	"context"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// YAMLStore persists snapshots as a flat YAML mapping.
type YAMLStore struct {
	path string
}

// NewYAMLStore creates a store writing to path.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Load implements Store.
func (s *YAMLStore) Load(ctx context.Context) (map[string]string, error) {
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
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", s.path, err)
	}
	return snapshot, nil
}

// Save implements Store.
func (s *YAMLStore) Save(ctx context.Context, snapshot map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", s.path, err)
	}
	return nil
}
