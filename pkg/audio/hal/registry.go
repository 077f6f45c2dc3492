// ABOUTME: Backend registry for platform systems
// ABOUTME: Backends register an opener by name from their init functions
package hal

import (
	"fmt"
	"sort"
	"sync"
)

// Opener creates a System for a backend
type Opener func() (System, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Opener)
)

// Register makes a backend available by name. It panics if the name is
// empty, the opener is nil, or the name is already registered.
func Register(name string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if name == "" || open == nil {
		panic("hal: Register called with empty name or nil opener")
	}
	if _, dup := backends[name]; dup {
		panic("hal: Register called twice for backend " + name)
	}
	backends[name] = open
}

// Open opens the named backend
func Open(name string) (System, error) {
	backendsMu.RLock()
	open, ok := backends[name]
	backendsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown audio backend %q (available: %v)", name, Backends())
	}
	return open()
}

// Backends returns the sorted names of the registered backends
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
