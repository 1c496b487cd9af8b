package registry

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/prefkit/internal/typesys"
)

// LoadFrom applies a persisted snapshot over the current values.
//
// Each known key is parsed through its setting's type (concurrently,
// bounded) and applied via the Set path, so it runs through full
// validation and notification. Keys with no registered setting are
// ignored; a parse or validation failure on one key does not prevent
// the others from loading. Both cases are surfaced on the diagnostics
// sink rather than failing the load. LoadFrom returns only after all
// per-key work has completed.
func (r *Registry) LoadFrom(ctx context.Context, snapshot map[string]string) {
	var g errgroup.Group
	g.SetLimit(r.limit)

	for name, raw := range snapshot {
		r.mu.RLock()
		e, ok := r.entries[name]
		r.mu.RUnlock()
		if !ok {
			// Forward compatibility: unknown persisted keys must not
			// block the load.
			r.diag("load: ignoring unknown setting %q", name)
			continue
		}

		name, raw, e := name, raw, e
		g.Go(func() error {
			value, err := e.typ.Parse(ctx, raw)
			if err != nil {
				r.diag("load: %s: %v", name, err)
				return nil
			}
			if err := r.Set(name, value); err != nil {
				r.diag("load: %s: %v", name, err)
			}
			return nil
		})
	}

	// Per-key failures are diagnostic, never returned.
	_ = g.Wait()
}

// SaveToObject produces the snapshot of all registered settings with
// their current values serialized through their types. The value view
// is captured at a single point in time before serialization begins,
// so no setting is captured half-updated. A key whose serialization
// fails is omitted and reported to diagnostics; the remaining keys are
// unaffected. Returns only after all per-key work has completed.
func (r *Registry) SaveToObject(ctx context.Context) map[string]string {
	type capture struct {
		name  string
		typ   typesys.Type
		value any
	}

	r.mu.RLock()
	captures := make([]capture, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		captures = append(captures, capture{name: name, typ: e.typ, value: e.value})
	}
	r.mu.RUnlock()

	serialized := make([]string, len(captures))
	done := make([]bool, len(captures))

	var g errgroup.Group
	g.SetLimit(r.limit)
	for i, c := range captures {
		i, c := i, c
		g.Go(func() error {
			s, err := c.typ.Serialize(ctx, c.value)
			if err != nil {
				r.diag("save: %s: %v", c.name, err)
				return nil
			}
			serialized[i] = s
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	snapshot := make(map[string]string, len(captures))
	for i, c := range captures {
		if done[i] {
			snapshot[c.name] = serialized[i]
		}
	}
	return snapshot
}
