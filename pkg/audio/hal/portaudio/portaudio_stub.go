//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Registers a backend that explains how to enable PortAudio
package portaudio

import (
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	"github.com/pkg/errors"
)

func init() {
	hal.Register("portaudio", func() (hal.System, error) {
		return Open()
	})
}

// Open reports that PortAudio support is not compiled in
func Open() (hal.System, error) {
	return nil, errors.Wrap(hal.ErrNotSupported, "PortAudio support not enabled (build with -tags portaudio)")
}
