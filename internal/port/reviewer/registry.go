package reviewer

import (
	"fmt"
	"sync"
)

// Factory is a constructor function that creates a Reviewer instance with
// the given stable id and backend-specific parameters.
type Factory func(id string, params map[string]string) (Reviewer, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a reviewer factory available by backend kind.
// It is typically called from an init() function in the adapter package.
func Register(kind string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("reviewer: duplicate registration for %q", kind))
	}
	factories[kind] = factory
}

// New creates a Reviewer of the given kind using the registered factory.
func New(kind, id string, params map[string]string) (Reviewer, error) {
	mu.RLock()
	factory, ok := factories[kind]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("reviewer: unknown backend kind %q", kind)
	}
	return factory(id, params)
}

// Kinds returns the backend kinds of all registered factories.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	return kinds
}
