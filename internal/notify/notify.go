// Package notify provides change notification for setting updates.
//
// Observers subscribe either to every change or to changes of a single
// setting. Delivery is synchronous and in subscription order; a
// panicking observer is isolated so the remaining observers still
// receive the event.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// Event is a single setting change.
type Event struct {
	// Name is the setting that changed.
	Name string

	// Value is the new value.
	Value any
}

// Observer is called when a setting changes.
type Observer func(event Event)

// PanicHandler receives recovered observer panics.
type PanicHandler func(subscriptionID string, recovered any)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       string
	name     string
	notifier *Notifier
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s)
	}
}

type registration struct {
	id       string
	observer Observer
}

// Notifier manages setting change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	// Observers that receive all changes, in subscription order.
	global []registration

	// Per-setting observers, in subscription order.
	byName map[string][]registration

	onPanic PanicHandler
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithPanicHandler sets the handler for recovered observer panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(n *Notifier) {
		n.onPanic = h
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		byName: make(map[string][]registration),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.NewString()
	n.global = append(n.global, registration{id: id, observer: observer})
	return &Subscription{id: id, notifier: n}
}

// SubscribeName registers an observer for changes to one setting.
func (n *Notifier) SubscribeName(name string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.NewString()
	n.byName[name] = append(n.byName[name], registration{id: id, observer: observer})
	return &Subscription{id: id, name: name, notifier: n}
}

// Notify delivers an event to all matching observers, global first,
// each group in subscription order. Observers run outside the
// notifier's lock so they may subscribe or unsubscribe reentrantly.
func (n *Notifier) Notify(event Event) {
	n.mu.RLock()
	regs := make([]registration, 0, len(n.global)+len(n.byName[event.Name]))
	regs = append(regs, n.global...)
	regs = append(regs, n.byName[event.Name]...)
	n.mu.RUnlock()

	for _, reg := range regs {
		n.deliver(reg, event)
	}
}

// deliver invokes one observer, recovering a panic so the fan-out
// continues.
func (n *Notifier) deliver(reg registration, event Event) {
	defer func() {
		if r := recover(); r != nil && n.onPanic != nil {
			n.onPanic(reg.id, r)
		}
	}()
	reg.observer(event)
}

// unsubscribe removes a subscription from its list.
func (n *Notifier) unsubscribe(s *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if s.name == "" {
		n.global = remove(n.global, s.id)
		return
	}

	n.byName[s.name] = remove(n.byName[s.name], s.id)
	if len(n.byName[s.name]) == 0 {
		delete(n.byName, s.name)
	}
}

func remove(regs []registration, id string) []registration {
	for i, reg := range regs {
		if reg.id == id {
			return append(regs[:i:i], regs[i+1:]...)
		}
	}
	return regs
}
