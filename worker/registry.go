package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps worker names to implementations so a worker entry point can
// select its logic by name. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]Worker
}

// NewRegistry creates an empty worker registry.
func NewRegistry() *Registry {
	return &Registry{workers: make(map[string]Worker)}
}

// Register adds w under name, replacing any previous registration.
func (r *Registry) Register(name string, w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[name] = w
}

// RegisterFunc registers a typed task function under name.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterFunc[T any](r *Registry, name string, fn func(ctx context.Context, data T) bool) {
	r.Register(name, &Typed[any, T]{OnTask: fn})
}

// Get returns the worker registered under name.
func (r *Registry) Get(name string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[name]
	return w, ok
}

// MustGet is like Get but returns an error naming the known workers.
func (r *Registry) MustGet(name string) (Worker, error) {
	if w, ok := r.Get(name); ok {
		return w, nil
	}
	return nil, fmt.Errorf("unknown worker %q (known: %v)", name, r.Names())
}

// Names returns all registered worker names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
