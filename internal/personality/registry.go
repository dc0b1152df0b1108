package personality

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages personality descriptors.
type Registry struct {
	mu            sync.RWMutex
	personalities map[string]*Descriptor
}

// NewRegistry creates a registry seeded with the built-in personalities.
func NewRegistry() *Registry {
	r := &Registry{
		personalities: make(map[string]*Descriptor),
	}

	for id, d := range BuiltInPersonalities() {
		r.personalities[id] = d
	}

	return r
}

// Get retrieves a personality by id.
func (r *Registry) Get(id string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.personalities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPersonality, id)
	}

	return d, nil
}

// Register adds or replaces a personality.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.personalities[d.ID] = d
	return nil
}

// List returns all personalities sorted by id.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Descriptor, 0, len(r.personalities))
	for _, d := range r.personalities {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Exists checks if a personality exists.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.personalities[id]
	return ok
}

// Count returns the number of registered personalities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.personalities)
}
