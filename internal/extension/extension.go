// Package extension defines how external extensions contribute
// settings and setting types to the registry.
//
// The registry does not own registration; it queries a Catalog for the
// current set of declarations. Catalogs can be built statically, from
// manifest files on disk, or from extension scripts.
package extension

import (
	"github.com/dshills/prefkit/internal/typesys"
)

// Declaration declares one setting.
type Declaration struct {
	// Name is the unique setting identifier (e.g. "editor.tabSize").
	Name string `json:"name"`

	// Type names a descriptor known to the type resolver.
	Type string `json:"type"`

	// Default is the initial value. It must validate under Type.
	Default any `json:"default"`

	// Description is human-readable documentation.
	Description string `json:"description,omitempty"`

	// Tags for filtering and grouping.
	Tags []string `json:"tags,omitempty"`
}

// Catalog supplies the currently-declared settings and types.
// Declaration order is significant: the registry lists settings in
// catalog order.
type Catalog interface {
	// SettingDeclarations returns all setting declarations in
	// declaration order.
	SettingDeclarations() []Declaration

	// TypeDeclarations returns descriptors the extensions contribute,
	// to be registered with the type resolver before any setting that
	// references them.
	TypeDeclarations() []typesys.Type
}

// StaticCatalog is an in-memory Catalog populated by code.
type StaticCatalog struct {
	settings []Declaration
	types    []typesys.Type
}

// NewStaticCatalog creates an empty static catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{}
}

// Declare appends a setting declaration.
func (c *StaticCatalog) Declare(d Declaration) *StaticCatalog {
	c.settings = append(c.settings, d)
	return c
}

// DeclareType appends a type declaration.
func (c *StaticCatalog) DeclareType(t typesys.Type) *StaticCatalog {
	c.types = append(c.types, t)
	return c
}

// SettingDeclarations implements Catalog.
func (c *StaticCatalog) SettingDeclarations() []Declaration {
	out := make([]Declaration, len(c.settings))
	copy(out, c.settings)
	return out
}

// TypeDeclarations implements Catalog.
func (c *StaticCatalog) TypeDeclarations() []typesys.Type {
	out := make([]typesys.Type, len(c.types))
	copy(out, c.types)
	return out
}

// Multi combines catalogs; declarations appear in catalog order.
func Multi(catalogs ...Catalog) Catalog {
	return multiCatalog(catalogs)
}

type multiCatalog []Catalog

func (m multiCatalog) SettingDeclarations() []Declaration {
	var out []Declaration
	for _, c := range m {
		out = append(out, c.SettingDeclarations()...)
	}
	return out
}

func (m multiCatalog) TypeDeclarations() []typesys.Type {
	var out []typesys.Type
	for _, c := range m {
		out = append(out, c.TypeDeclarations()...)
	}
	return out
}
