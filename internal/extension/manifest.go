package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ManifestFile is the manifest filename looked for in each extension
// directory.
const ManifestFile = "extension.json"

// Manifest describes an extension's metadata and contributions.
type Manifest struct {
	// Identity
	Name        string `json:"name"`        // Unique identifier (e.g. "vim-mode")
	Version     string `json:"version"`     // Semver (e.g. "1.2.0")
	DisplayName string `json:"displayName"` // Human-readable name
	Description string `json:"description"` // Short description
	Author      string `json:"author"`      // Author name or org

	// Main is the relative path to an optional script declaring
	// custom types and further settings.
	Main string `json:"main"`

	// Settings declared by this extension.
	Settings []SettingProperty `json:"settings"`

	// Internal: directory the manifest was loaded from.
	path string
}

// SettingProperty declares one setting in a manifest.
type SettingProperty struct {
	Name        string   `json:"name"`        // Setting name within the extension namespace
	Type        string   `json:"type"`        // string, integer, number, boolean, duration
	Default     any      `json:"default"`     // Default value
	Description string   `json:"description"` // Property description
	Enum        []string `json:"enum"`        // Allowed values (string settings)
	Minimum     *float64 `json:"minimum"`     // Minimum for numeric settings
	Maximum     *float64 `json:"maximum"`     // Maximum for numeric settings
	Pattern     string   `json:"pattern"`     // Regex constraint (string settings)
	Tags        []string `json:"tags"`        // Categorization tags
}

// Validation errors.
var (
	ErrMissingName       = errors.New("manifest: name is required")
	ErrInvalidName       = errors.New("manifest: name must be alphanumeric with hyphens")
	ErrMissingVersion    = errors.New("manifest: version is required")
	ErrInvalidVersion    = errors.New("manifest: version must be valid semver")
	ErrMissingSetting    = errors.New("manifest: setting name is required")
	ErrInvalidType       = errors.New("manifest: invalid setting type")
	ErrMissingDefault    = errors.New("manifest: setting default is required")
	ErrInvalidConstraint = errors.New("manifest: invalid setting constraint")
)

// namePattern validates extension names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// versionPattern validates semver-shaped versions.
var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(?:[-+][0-9A-Za-z.-]+)?$`)

// settingTypes are the type names a manifest may declare directly.
// Enum, range and pattern constraints derive refined types from these.
var settingTypes = map[string]bool{
	"string":   true,
	"integer":  true,
	"number":   true,
	"boolean":  true,
	"duration": true,
}

// LoadManifest reads and validates a manifest from dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest in %s: %w", dir, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest in %s: %w", dir, err)
	}
	m.path = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for structural problems.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, m.Name)
	}
	if m.Version == "" {
		return ErrMissingVersion
	}
	if !versionPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, m.Version)
	}
	if m.Main != "" && !strings.HasSuffix(m.Main, ".lua") {
		return fmt.Errorf("manifest: main must be a .lua file, got %q", m.Main)
	}

	for i := range m.Settings {
		if err := m.Settings[i].validate(); err != nil {
			return fmt.Errorf("%s: setting %d: %w", m.Name, i, err)
		}
	}
	return nil
}

func (p *SettingProperty) validate() error {
	if p.Name == "" {
		return ErrMissingSetting
	}
	if !settingTypes[p.Type] {
		return fmt.Errorf("%w: %q", ErrInvalidType, p.Type)
	}
	if p.Default == nil {
		return fmt.Errorf("%w: %s", ErrMissingDefault, p.Name)
	}
	if len(p.Enum) > 0 && p.Type != "string" {
		return fmt.Errorf("%w: enum requires type string", ErrInvalidConstraint)
	}
	if (p.Minimum != nil || p.Maximum != nil) && p.Type != "integer" && p.Type != "number" {
		return fmt.Errorf("%w: minimum/maximum require a numeric type", ErrInvalidConstraint)
	}
	if p.Pattern != "" && p.Type != "string" {
		return fmt.Errorf("%w: pattern requires type string", ErrInvalidConstraint)
	}
	return nil
}

// Path returns the directory the manifest was loaded from.
func (m *Manifest) Path() string { return m.path }

// MainScript returns the absolute path of the extension's script, or
// "" if none is declared.
func (m *Manifest) MainScript() string {
	if m.Main == "" {
		return ""
	}
	return filepath.Join(m.path, m.Main)
}
