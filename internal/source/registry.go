package source

import (
	"fmt"

	"AckeeVeille/internal/ports"
)

// Registry keeps source adapters in registration order.
type Registry struct {
	adapters []ports.SourceAdapter
	index    map[string]int
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Register appends an adapter, or replaces one with the same name in place.
func (r *Registry) Register(adapter ports.SourceAdapter) {
	if r.index == nil {
		r.index = map[string]int{}
	}
	name := adapter.Name()
	if i, ok := r.index[name]; ok {
		r.adapters[i] = adapter
		return
	}
	r.index[name] = len(r.adapters)
	r.adapters = append(r.adapters, adapter)
}

// Resolve returns an adapter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.SourceAdapter, error) {
	if i, ok := r.index[name]; ok {
		return r.adapters[i], nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// Adapters returns a copy of the registered adapters, in registration order.
func (r *Registry) Adapters() []ports.SourceAdapter {
	out := make([]ports.SourceAdapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Names lists adapter names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Len reports how many adapters are registered.
func (r *Registry) Len() int {
	return len(r.adapters)
}
