// Package registry implements the settings registry.
//
// The registry owns every setting entry: its declared type, default,
// current value and change subscriptions. Settings are registered
// dynamically from an extension catalog; values are validated against
// their declared type before acceptance, so an entry never holds an
// invalid value.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/prefkit/internal/extension"
	"github.com/dshills/prefkit/internal/notify"
	"github.com/dshills/prefkit/internal/store"
	"github.com/dshills/prefkit/internal/typesys"
)

// defaultParallelism bounds concurrent per-key parse/serialize work
// during LoadFrom and SaveToObject.
const defaultParallelism = 8

// DiagnosticFunc receives non-fatal conditions: ignored snapshot keys,
// isolated per-key load/save failures, observer panics, and catalog
// declarations that failed to register.
type DiagnosticFunc func(format string, args ...any)

// ChangeHook is the persistence callback invoked for every successful
// Set/Reset, including the initial default application.
type ChangeHook func(name string, value any)

// TypeRegistrar is satisfied by resolvers that accept extension-
// contributed type declarations (*typesys.Registry does).
type TypeRegistrar interface {
	RegisterType(t typesys.Type) error
}

// entry is the per-setting record. Mutated only by the registry.
type entry struct {
	decl  extension.Declaration
	typ   typesys.Type
	value any
}

// Registry maintains all registered settings and provides validated
// access to their values.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // registration order, drives Names/Entries

	resolver typesys.Resolver
	catalog  extension.Catalog
	store    store.Store
	notifier *notify.Notifier
	diag     DiagnosticFunc
	limit    int
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore sets the snapshot store used by Initialize and Flush.
func WithStore(s store.Store) Option {
	return func(r *Registry) {
		r.store = s
	}
}

// WithDiagnostics sets the diagnostic sink. Defaults to discarding.
func WithDiagnostics(fn DiagnosticFunc) Option {
	return func(r *Registry) {
		if fn != nil {
			r.diag = fn
		}
	}
}

// WithChangeHook arms a persistence callback that observes every
// change to every setting.
func WithChangeHook(hook ChangeHook) Option {
	return func(r *Registry) {
		r.notifier.Subscribe(func(e notify.Event) {
			hook(e.Name, e.Value)
		})
	}
}

// WithParallelism bounds concurrent per-key work in LoadFrom and
// SaveToObject.
func WithParallelism(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.limit = n
		}
	}
}

// New creates a registry. Construction does no registration; call
// Initialize once the system is ready.
func New(resolver typesys.Resolver, catalog extension.Catalog, opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]*entry),
		resolver: resolver,
		catalog:  catalog,
		diag:     func(string, ...any) {},
		limit:    defaultParallelism,
	}
	r.notifier = notify.New(notify.WithPanicHandler(func(id string, recovered any) {
		r.diag("observer %s panicked: %v", id, recovered)
	}))

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize is the second phase of construction: it registers every
// catalog declaration (applying defaults, with notifications), then
// overlays the persisted snapshot from the configured store.
//
// Per-declaration failures are reported to diagnostics and do not
// block the remaining declarations. Only a failing store read is
// fatal.
func (r *Registry) Initialize(ctx context.Context) error {
	if r.catalog != nil {
		if registrar, ok := r.resolver.(TypeRegistrar); ok {
			for _, t := range r.catalog.TypeDeclarations() {
				if err := registrar.RegisterType(t); err != nil {
					r.diag("type declaration %s: %v", t.Name(), err)
				}
			}
		}
		for _, decl := range r.catalog.SettingDeclarations() {
			if err := r.Register(ctx, decl); err != nil {
				r.diag("declaration %s: %v", decl.Name, err)
			}
		}
	}

	if r.store != nil {
		snapshot, err := r.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading persisted settings: %w", err)
		}
		r.LoadFrom(ctx, snapshot)
	}
	return nil
}

// Register adds one setting. The type name is resolved through the
// resolver (which may suspend on ctx), the default is validated, and
// on success the entry becomes visible with current value equal to the
// default. The default application fires a change notification.
func (r *Registry) Register(ctx context.Context, decl extension.Declaration) error {
	r.mu.RLock()
	_, exists := r.entries[decl.Name]
	r.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSetting, decl.Name)
	}

	typ, err := r.resolver.Resolve(ctx, decl.Type)
	if err != nil {
		return fmt.Errorf("registering %s: %w", decl.Name, err)
	}
	if err := typ.Validate(decl.Default); err != nil {
		return &InvalidDefaultError{Name: decl.Name, Value: decl.Default, Err: err}
	}

	r.mu.Lock()
	// Re-check: another registration may have won while the type was
	// resolving.
	if _, exists := r.entries[decl.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateSetting, decl.Name)
	}
	r.entries[decl.Name] = &entry{decl: decl, typ: typ, value: decl.Default}
	r.order = append(r.order, decl.Name)
	r.mu.Unlock()

	r.notifier.Notify(notify.Event{Name: decl.Name, Value: decl.Default})
	return nil
}

// Get returns the current value, or false if the name is not
// registered. Values are validated on the way in, never on the way
// out.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Has checks whether a setting is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Set validates value against the setting's type and, on success,
// updates the current value and notifies subscribers in subscription
// order. On failure the current value is untouched.
func (r *Registry) Set(name string, value any) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}

	if err := e.typ.Validate(value); err != nil {
		return &ValidationError{Name: name, Value: value, Err: err}
	}

	r.mu.Lock()
	e.value = value
	r.mu.Unlock()

	r.notifier.Notify(notify.Event{Name: name, Value: value})
	return nil
}

// SetString parses raw through the setting's type, then applies it via
// Set. This is the path persisted and user-entered string values take.
func (r *Registry) SetString(ctx context.Context, name, raw string) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}

	value, err := e.typ.Parse(ctx, raw)
	if err != nil {
		return &ValidationError{Name: name, Value: raw, Err: err}
	}
	return r.Set(name, value)
}

// Reset restores the default value through the Set path, so
// notifications fire exactly as for any other change.
func (r *Registry) Reset(name string) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	return r.Set(name, e.decl.Default)
}

// Names returns all registered names in declaration order. The slice
// is a snapshot: later registrations do not mutate it.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// NamedValue pairs a setting name with its current value.
type NamedValue struct {
	Name  string
	Value any
}

// Entries returns (name, value) pairs for all registered settings in
// declaration order, snapshotted at the time of the call.
func (r *Registry) Entries() []NamedValue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]NamedValue, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, NamedValue{Name: name, Value: r.entries[name].value})
	}
	return out
}

// Describe returns the declaration a setting was registered with.
func (r *Registry) Describe(name string) (extension.Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return extension.Declaration{}, false
	}
	return e.decl, true
}

// Subscribe registers an observer for every setting change.
func (r *Registry) Subscribe(observer notify.Observer) *notify.Subscription {
	return r.notifier.Subscribe(observer)
}

// SubscribeName registers an observer for changes to one setting.
func (r *Registry) SubscribeName(name string, observer notify.Observer) *notify.Subscription {
	return r.notifier.SubscribeName(name, observer)
}

// Flush serializes the current state and writes it to the configured
// store.
func (r *Registry) Flush(ctx context.Context) error {
	if r.store == nil {
		return ErrNoStore
	}
	return r.store.Save(ctx, r.SaveToObject(ctx))
}
