// ABOUTME: Tests for backend registration
// ABOUTME: Checks every backend is registered by name
package all

import (
	"testing"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
)

func TestAllRegistered(t *testing.T) {
	names := hal.Backends()
	for _, want := range []string{"malgo", "oto", "portaudio", "sim"} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("backend %q not registered, have %v", want, names)
		}
	}
}
