package adapter

import (
	"fmt"
	"sync"
)

// Registry maps adapter names (as stored in execution params) to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]ExecutionAdapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]ExecutionAdapter)}
}

// Register binds an adapter under a name. Re-registering a name is an error;
// unbind/rebind is an explicit operational step, not a silent overwrite.
func (r *Registry) Register(name string, a ExecutionAdapter) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrBadTradeRequest)
	}
	if a == nil {
		return fmt.Errorf("%w: nil adapter", ErrBadTradeRequest)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterDuplicate, name)
	}
	r.adapters[name] = a
	return nil
}

// Unregister removes the adapter bound under name, if any.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, name)
}

// Get returns the adapter bound under name.
func (r *Registry) Get(name string) (ExecutionAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterUnknown, name)
	}
	return a, nil
}

// Names returns the registered adapter names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	return names
}
