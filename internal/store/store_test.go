package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var sample = map[string]string{
	"editor.tabSize":  "4",
	"ui.theme":        "dark",
	"input.leaderKey": "<Space>",
}

func TestFileStores_RoundTrip(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		path string
	}{
		{"toml", "settings.toml"},
		{"json", "settings.json"},
		{"yaml", "settings.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.path)
			s, err := ForPath(path)
			if err != nil {
				t.Fatalf("ForPath failed: %v", err)
			}

			if err := s.Save(ctx, sample); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if len(got) != len(sample) {
				t.Fatalf("expected %d keys, got %d", len(sample), len(got))
			}
			for k, v := range sample {
				if got[k] != v {
					t.Errorf("key %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestFileStores_MissingFileLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, name := range []string{"a.toml", "a.json", "a.yaml"} {
		s, err := ForPath(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("ForPath failed: %v", err)
		}
		snap, err := s.Load(ctx)
		if err != nil {
			t.Errorf("%s: Load of missing file failed: %v", name, err)
		}
		if len(snap) != 0 {
			t.Errorf("%s: expected empty snapshot, got %v", name, snap)
		}
	}
}

func TestForPath_Unsupported(t *testing.T) {
	if _, err := ForPath("settings.ini"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestJSONStore_DottedKeysStayFlat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "s.json")
	s := NewJSONStore(path)

	if err := s.Save(ctx, map[string]string{"editor.tabSize": "4"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// The dotted name must be a single top-level key, not nesting.
	if !strings.Contains(string(data), `"editor.tabSize"`) {
		t.Errorf("dotted key was nested: %s", data)
	}
}

func TestJSONStore_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewJSONStore(path).Load(context.Background()); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("expected empty snapshot, got %v", snap)
	}

	if err := s.Save(ctx, sample); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got["ui.theme"] != "dark" {
		t.Errorf("ui.theme = %q, want dark", got["ui.theme"])
	}

	// The store holds its own copy.
	got["ui.theme"] = "mutated"
	again, _ := s.Load(ctx)
	if again["ui.theme"] != "dark" {
		t.Error("caller mutation leaked into the store")
	}
}
