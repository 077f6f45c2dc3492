//go:build !portaudio

// ABOUTME: Tests for the portaudio stub
// ABOUTME: Checks the stub registers and refuses to open
package portaudio

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
)

func TestStubOpen(t *testing.T) {
	sys, err := hal.Open("portaudio")
	if sys != nil {
		t.Fatal("stub returned a system")
	}
	if !errors.Is(err, hal.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}
