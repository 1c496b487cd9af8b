package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dshills/prefkit/internal/typesys"
)

// ScriptRunner executes an extension's main script and returns the
// declarations it produced. Implemented by the luaext package.
type ScriptRunner interface {
	// RunScript executes the script at path on behalf of the named
	// extension and returns its contributions.
	RunScript(extName, path string) (ScriptResult, error)
}

// ScriptResult holds the contributions of one extension script.
type ScriptResult struct {
	Settings []Declaration
	Types    []typesys.Type
}

// Info records the discovery outcome for one extension directory.
type Info struct {
	Name     string
	Path     string
	Manifest *Manifest
	Err      error
}

// Loader discovers extensions on the filesystem and assembles a
// Catalog from their manifests and scripts.
type Loader struct {
	paths  []string
	runner ScriptRunner
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the extension search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// WithScriptRunner sets the runner used for extensions that declare a
// main script. Without a runner, scripts are skipped.
func WithScriptRunner(r ScriptRunner) LoaderOption {
	return func(l *Loader) {
		l.runner = r
	}
}

// NewLoader creates a new extension loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discover scans the search paths for extension directories holding a
// manifest. Directories are visited in path order, then sorted by name
// within each path, so catalog order is deterministic. A broken
// manifest is recorded on its Info, not fatal to discovery.
func (l *Loader) Discover() []*Info {
	var infos []*Info
	seen := make(map[string]bool)

	for _, root := range l.paths {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue // Missing search path is not an error.
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			dir := filepath.Join(root, name)
			if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
				continue
			}

			info := &Info{Name: name, Path: dir}
			m, err := LoadManifest(dir)
			if err != nil {
				info.Err = err
			} else {
				info.Name = m.Name
				info.Manifest = m
			}

			// Earlier search paths shadow later ones.
			if seen[info.Name] {
				continue
			}
			seen[info.Name] = true
			infos = append(infos, info)
		}
	}
	return infos
}

// Catalog discovers extensions and builds their combined catalog.
// Per-extension failures (bad manifest, script error, bad constraint)
// are returned alongside the catalog; the remaining extensions still
// contribute.
func (l *Loader) Catalog() (Catalog, []error) {
	cat := NewStaticCatalog()
	var errs []error

	for _, info := range l.Discover() {
		if info.Err != nil {
			errs = append(errs, info.Err)
			continue
		}
		if err := l.contribute(cat, info.Manifest); err != nil {
			errs = append(errs, fmt.Errorf("extension %s: %w", info.Name, err))
		}
	}
	return cat, errs
}

// contribute adds one manifest's settings (and its script's
// contributions) to the catalog.
func (l *Loader) contribute(cat *StaticCatalog, m *Manifest) error {
	for i := range m.Settings {
		decl, typ, err := declarationFor(m.Name, &m.Settings[i])
		if err != nil {
			return err
		}
		if typ != nil {
			cat.DeclareType(typ)
		}
		cat.Declare(decl)
	}

	if script := m.MainScript(); script != "" && l.runner != nil {
		result, err := l.runner.RunScript(m.Name, script)
		if err != nil {
			return err
		}
		for _, t := range result.Types {
			cat.DeclareType(t)
		}
		for _, d := range result.Settings {
			cat.Declare(d)
		}
	}
	return nil
}

// declarationFor converts a manifest property into a declaration,
// synthesizing a refined type when the property carries constraints.
// The refined type is named after the setting so it cannot collide
// with built-ins or other extensions.
func declarationFor(extName string, p *SettingProperty) (Declaration, typesys.Type, error) {
	name := extName + "." + p.Name

	decl := Declaration{
		Name:        name,
		Type:        p.Type,
		Default:     normalizeDefault(p.Type, p.Default),
		Description: p.Description,
		Tags:        p.Tags,
	}

	var typ typesys.Type
	switch {
	case len(p.Enum) > 0:
		typ = typesys.Enum(name, p.Enum...)
	case p.Pattern != "":
		var err error
		typ, err = typesys.Pattern(name, p.Pattern)
		if err != nil {
			return Declaration{}, nil, err
		}
	case p.Minimum != nil || p.Maximum != nil:
		min, max := numericBounds(p)
		if p.Type == "integer" {
			typ = typesys.IntRange(name, int64(min), int64(max))
		} else {
			typ = typesys.FloatRange(name, min, max)
		}
	}

	if typ != nil {
		decl.Type = typ.Name()
	}
	return decl, typ, nil
}

func numericBounds(p *SettingProperty) (min, max float64) {
	min = -maxFloat
	max = maxFloat
	if p.Minimum != nil {
		min = *p.Minimum
	}
	if p.Maximum != nil {
		max = *p.Maximum
	}
	return min, max
}

// maxFloat bounds open-ended ranges. Large enough for any plausible
// setting, small enough to survive the int64 conversion for integers.
const maxFloat = float64(1 << 62)

// normalizeDefault fixes up JSON decoding artifacts: JSON numbers
// decode as float64, but integer settings hold int values.
func normalizeDefault(typeName string, def any) any {
	if typeName != "integer" {
		return def
	}
	if f, ok := def.(float64); ok && f == float64(int64(f)) {
		return int(f)
	}
	return def
}
