package orm

import (
	"fmt"
	"slices"
	"sync"
)

// Registry keeps entity metadata by short name ("Product") and by
// fully-qualified type name ("example.com/catalog.Product").
type Registry struct {
	byName map[string]*Metadata
	names  []string
	mu     sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Metadata)}
}

// Register describes and stores each prototype.
func (r *Registry) Register(prototypes ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range prototypes {
		m, err := Describe(p)
		if err != nil {
			return err
		}
		if _, dup := r.byName[m.Name]; dup {
			return fmt.Errorf("%w: %s registered twice", ErrInvalidEntity, m.Name)
		}
		r.byName[m.Name] = m
		r.byName[m.TypeName] = m
		r.names = append(r.names, m.Name)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(prototypes ...any) {
	if err := r.Register(prototypes...); err != nil {
		panic(err)
	}
}

// Lookup returns metadata by short or fully-qualified name.
func (r *Registry) Lookup(name string) (*Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return m, nil
}

// Names returns the short names of registered entities in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}
