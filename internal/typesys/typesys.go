// Package typesys provides type descriptors for setting values.
//
// A type descriptor knows how to validate a candidate value, parse a
// value from its persisted string form, and serialize a value back to
// a string. Descriptors are looked up by name through a Resolver;
// extensions may contribute new descriptors at run time.
package typesys

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Type describes one setting type.
//
// Parse and Serialize take a context because resolution of a value may
// involve work that suspends (extension-provided descriptors run
// script code). Validate is always synchronous.
type Type interface {
	// Name is the identifier the type is registered under.
	Name() string

	// Validate reports whether value is acceptable for this type.
	Validate(value any) error

	// Parse converts the persisted string form into a typed value.
	Parse(ctx context.Context, s string) (any, error)

	// Serialize converts a typed value into its persisted string form.
	Serialize(ctx context.Context, value any) (string, error)
}

// Resolver resolves a type name to a descriptor.
type Resolver interface {
	// Resolve returns the descriptor registered under name.
	// Returns an error wrapping ErrUnknownType if the name is not known.
	Resolve(ctx context.Context, name string) (Type, error)
}

// Resolution errors.
var (
	ErrUnknownType = errors.New("unknown setting type")
	ErrTypeExists  = errors.New("type already registered")
)

// Registry is a Resolver backed by a runtime-populated map of
// descriptors. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry creates an empty type registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Type)}
}

// NewWithBuiltins creates a registry pre-populated with the built-in
// descriptors (string, integer, number, boolean, duration).
func NewWithBuiltins() *Registry {
	r := NewRegistry()
	for _, t := range builtins() {
		// Built-in names never collide.
		_ = r.RegisterType(t)
	}
	return r
}

// RegisterType adds a descriptor under its own name.
// Returns an error wrapping ErrTypeExists on duplicate names.
func (r *Registry) RegisterType(t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrTypeExists, t.Name())
	}
	r.types[t.Name()] = t
	return nil
}

// Resolve implements Resolver.
func (r *Registry) Resolve(ctx context.Context, name string) (Type, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return t, nil
}

// Has checks whether a descriptor is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Names returns the registered type names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}
