// ABOUTME: Host-facing interfaces of the output backend
// ABOUTME: Implemented by Engine and Mixer
package output

import (
	"time"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
)

// Output is the transport and data path a host drives from its producer
// goroutine
type Output interface {
	// Init selects the device
	Init() error

	// Exit releases the device
	Exit() error

	// Open negotiates format and starts the device
	Open(format audio.Format, channelMap []audio.ChannelPosition) error

	// Close stops the device
	Close() error

	// Write hands samples to the device and returns the bytes accepted
	Write(p []byte) int

	// BufferSpace blocks until the device wants data and returns how much
	BufferSpace() int

	// BufferSpaceDelay is how long the host may wait before asking again
	BufferSpaceDelay() time.Duration

	Pause() error
	Unpause() error
	Drop() error

	SetOption(name, value string) error
	GetOption(name string) (string, error)
}

// MixerOutput is the volume control a host polls alongside playback
type MixerOutput interface {
	// Open returns the maximum volume level
	Open() (int, error)
	Close() error

	// Fds returns descriptors that become readable on external changes
	Fds() []int

	SetVolume(l, r int) error
	GetVolume() (l, r int, err error)
}

var (
	_ Output      = (*Engine)(nil)
	_ MixerOutput = (*Mixer)(nil)
)
