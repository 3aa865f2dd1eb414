package portals

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Registry maps portal URLs to portal descriptors. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	portals map[ID]Portal
}

// NewRegistry creates a registry holding the given portals.
func NewRegistry(portals ...Portal) (*Registry, error) {
	r := &Registry{portals: make(map[ID]Portal, len(portals))}
	for _, p := range portals {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry with the built-in portals.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		// built-in data is static; a failure here is a programming error
		panic(fmt.Sprintf("invalid built-in portal: %v", err))
	}
	return r
}

// Register adds or replaces a portal descriptor
func (r *Registry) Register(p Portal) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("portal %s: %w", p.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.portals[p.ID] = p
	return nil
}

// Classify resolves url to its portal. Portals are tried in the order of IDs
// and the first match wins; an empty option means the portal is unknown.
func (r *Registry) Classify(url string) mo.Option[Portal] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range IDs {
		p, ok := r.portals[id]
		if ok && p.Matches(url) {
			return mo.Some(p)
		}
	}
	return mo.None[Portal]()
}

// Get returns the portal registered under id.
func (r *Registry) Get(id ID) mo.Option[Portal] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.portals[id]
	if !ok {
		return mo.None[Portal]()
	}
	return mo.Some(p)
}

// ForTaskType returns the portal that handles a bureaucratic task type
// such as "nie_application".
func (r *Registry) ForTaskType(taskType string) mo.Option[Portal] {
	for _, p := range r.All() {
		if slices.Contains(p.TaskTypes, taskType) {
			return mo.Some(p)
		}
	}
	return mo.None[Portal]()
}

// All returns the registered portals in classification order.
func (r *Registry) All() []Portal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(IDs, func(id ID, _ int) (Portal, bool) {
		p, ok := r.portals[id]
		return p, ok
	})
}
