package store

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSONStore persists snapshots as a flat JSON object.
type JSONStore struct {
	path string
}

// NewJSONStore creates a store writing to path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load implements Store.
func (s *JSONStore) Load(ctx context.Context) (map[string]string, error) {
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

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing snapshot %s: invalid JSON", s.path)
	}

	snapshot := make(map[string]string)
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		snapshot[key.String()] = value.String()
		return true
	})
	return snapshot, nil
}

// Save implements Store. Keys are written sorted so the file diffs
// cleanly under version control.
func (s *JSONStore) Save(ctx context.Context, snapshot map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	out := "{}"
	for _, name := range names {
		var err error
		// Setting names contain dots; escape them so sjson treats the
		// whole name as a single key rather than a path.
		out, err = sjson.Set(out, escapeKey(name), snapshot[name])
		if err != nil {
			return fmt.Errorf("encoding snapshot key %q: %w", name, err)
		}
	}

	if err := renameio.WriteFile(s.path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", s.path, err)
	}
	return nil
}

func escapeKey(name string) string {
	name = strings.ReplaceAll(name, `\`, `\\`)
	name = strings.ReplaceAll(name, ".", `\.`)
	name = strings.ReplaceAll(name, "*", `\*`)
	name = strings.ReplaceAll(name, "?", `\?`)
	return name
}
