// ABOUTME: PortAudio backend registration tests
// ABOUTME: Verifies the backend is registered with or without the portaudio tag
package portaudio

import (
	"testing"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
)

func TestRegistered(t *testing.T) {
	for _, name := range hal.Backends() {
		if name == "portaudio" {
			return
		}
	}
	t.Fatal("portaudio backend not registered")
}
