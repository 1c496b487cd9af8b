package extension

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/prefkit/internal/typesys"
)

func writeExtension(t *testing.T, root, name, manifest string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, manifest)
	return dir
}

func TestLoader_Discover(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "bbb", `{"name": "bbb", "version": "1.0.0"}`)
	writeExtension(t, root, "aaa", `{"name": "aaa", "version": "1.0.0"}`)

	// A directory without a manifest is not an extension.
	if err := os.MkdirAll(filepath.Join(root, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}

	infos := NewLoader(WithPaths(root)).Discover()
	if len(infos) != 2 {
		t.Fatalf("expected 2 extensions, got %d", len(infos))
	}
	if infos[0].Name != "aaa" || infos[1].Name != "bbb" {
		t.Errorf("discovery not sorted: %q, %q", infos[0].Name, infos[1].Name)
	}
}

func TestLoader_Discover_Shadowing(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeExtension(t, first, "dup", `{"name": "dup", "version": "2.0.0"}`)
	writeExtension(t, second, "dup", `{"name": "dup", "version": "1.0.0"}`)

	infos := NewLoader(WithPaths(first, second)).Discover()
	if len(infos) != 1 {
		t.Fatalf("expected 1 extension after shadowing, got %d", len(infos))
	}
	if infos[0].Manifest.Version != "2.0.0" {
		t.Errorf("earlier search path did not shadow: got version %s", infos[0].Manifest.Version)
	}
}

func TestLoader_Discover_MissingPath(t *testing.T) {
	infos := NewLoader(WithPaths(filepath.Join(t.TempDir(), "nope"))).Discover()
	if len(infos) != 0 {
		t.Errorf("expected no extensions, got %d", len(infos))
	}
}

func TestLoader_Catalog(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "editor", `{
		"name": "editor",
		"version": "1.0.0",
		"settings": [
			{"name": "tabSize", "type": "integer", "default": 4, "minimum": 1, "maximum": 16},
			{"name": "wordWrap", "type": "string", "default": "off", "enum": ["off", "on", "bounded"]},
			{"name": "theme", "type": "string", "default": "dark"}
		]
	}`)

	cat, errs := NewLoader(WithPaths(root)).Catalog()
	if len(errs) != 0 {
		t.Fatalf("unexpected catalog errors: %v", errs)
	}

	decls := cat.SettingDeclarations()
	if len(decls) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(decls))
	}

	// Names are namespaced by extension.
	if decls[0].Name != "editor.tabSize" {
		t.Errorf("declaration name = %q, want editor.tabSize", decls[0].Name)
	}

	// JSON float default normalized for integer settings.
	if decls[0].Default != 4 {
		t.Errorf("tabSize default = %v (%T), want int 4", decls[0].Default, decls[0].Default)
	}

	// Constrained settings get a refined type named after the setting.
	if decls[0].Type != "editor.tabSize" {
		t.Errorf("tabSize type = %q, want refined editor.tabSize", decls[0].Type)
	}
	if decls[1].Type != "editor.wordWrap" {
		t.Errorf("wordWrap type = %q, want refined editor.wordWrap", decls[1].Type)
	}
	// Unconstrained settings keep the built-in type.
	if decls[2].Type != "string" {
		t.Errorf("theme type = %q, want string", decls[2].Type)
	}

	types := cat.TypeDeclarations()
	if len(types) != 2 {
		t.Fatalf("expected 2 synthesized types, got %d", len(types))
	}
	for _, typ := range types {
		if typ.Name() == "editor.tabSize" {
			if err := typ.Validate(17); err == nil {
				t.Error("refined tabSize type accepted out-of-range value")
			}
		}
	}
}

func TestLoader_Catalog_BadManifestIsolated(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "bad", `{"name": "bad"}`)
	writeExtension(t, root, "good", `{
		"name": "good",
		"version": "1.0.0",
		"settings": [{"name": "on", "type": "boolean", "default": true}]
	}`)

	cat, errs := NewLoader(WithPaths(root)).Catalog()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if len(cat.SettingDeclarations()) != 1 {
		t.Errorf("good extension should still contribute")
	}
}

type fakeRunner struct {
	gotName string
	gotPath string
}

func (r *fakeRunner) RunScript(extName, path string) (ScriptResult, error) {
	r.gotName = extName
	r.gotPath = path
	return ScriptResult{
		Settings: []Declaration{{Name: extName + ".fromScript", Type: "string", Default: "x"}},
		Types:    []typesys.Type{typesys.Enum(extName + ".mode", "a", "b")},
	}, nil
}

func TestLoader_Catalog_RunsScripts(t *testing.T) {
	root := t.TempDir()
	dir := writeExtension(t, root, "scripted", `{
		"name": "scripted",
		"version": "1.0.0",
		"main": "init.lua"
	}`)
	if err := os.WriteFile(filepath.Join(dir, "init.lua"), []byte("-- noop"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	cat, errs := NewLoader(WithPaths(root), WithScriptRunner(runner)).Catalog()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if runner.gotName != "scripted" {
		t.Errorf("runner got extension %q", runner.gotName)
	}
	if runner.gotPath != filepath.Join(dir, "init.lua") {
		t.Errorf("runner got path %q", runner.gotPath)
	}

	decls := cat.SettingDeclarations()
	if len(decls) != 1 || decls[0].Name != "scripted.fromScript" {
		t.Errorf("script declarations missing: %+v", decls)
	}
	if len(cat.TypeDeclarations()) != 1 {
		t.Errorf("script type declarations missing")
	}
}
