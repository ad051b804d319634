package model

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a model from its hyperparameters.
type Factory func(params Params) (Model, error)

var defaultRegistry = NewRegistry()

// Registry maps model names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty model registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns the global default registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry.
func Register(name string, f Factory) {
	defaultRegistry.Register(name, f)
}

// New creates a model from the default registry.
func New(name string, params Params) (Model, error) {
	return defaultRegistry.New(name, params)
}

// Names returns the model names of the default registry.
func Names() []string {
	return defaultRegistry.Names()
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Has reports whether a factory is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// New creates the model registered under name.
func (r *Registry) New(name string, params Params) (Model, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownModel, name, r.Names())
	}
	return f(params)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
