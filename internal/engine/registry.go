package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownEngine = errors.New("engine: unknown engine")

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register installs f under name, replacing any previous factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

func Get(name string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return f, nil
}

// Names returns registered engine names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
