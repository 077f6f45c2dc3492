// ABOUTME: Tests for the backend registry
// ABOUTME: Tests registration, lookup and duplicate detection
package hal

import (
	"errors"
	"testing"
)

// unregister lets tests that register backends run more than once per process
func unregister(t *testing.T, name string) {
	t.Cleanup(func() {
		backendsMu.Lock()
		defer backendsMu.Unlock()
		delete(backends, name)
	})
}

func TestRegistryOpen(t *testing.T) {
	errSentinel := errors.New("opened")
	unregister(t, "registry-test")
	Register("registry-test", func() (System, error) {
		return nil, errSentinel
	})

	if _, err := Open("registry-test"); !errors.Is(err, errSentinel) {
		t.Errorf("expected opener error, got %v", err)
	}

	found := false
	for _, name := range Backends() {
		if name == "registry-test" {
			found = true
		}
	}
	if !found {
		t.Error("expected registered backend to be listed")
	}
}

func TestRegistryUnknown(t *testing.T) {
	if _, err := Open("does-not-exist"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	unregister(t, "registry-dup")
	Register("registry-dup", func() (System, error) { return nil, nil })

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	Register("registry-dup", func() (System, error) { return nil, nil })
}

func TestRegistryRepeatable(t *testing.T) {
	for i := 0; i < 2; i++ {
		t.Run("run", TestRegistryOpen)
	}
	for _, name := range Backends() {
		if name == "registry-test" {
			t.Error("expected test backend to be removed after the run")
		}
	}
}
