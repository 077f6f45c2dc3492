// ABOUTME: Stereo volume mixer on the output device's preferred channel pair
// ABOUTME: Device volume changes are relayed to the host through a wakeup pipe
package output

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
)

// MaxVolume is the volume level reported for full scale
const MaxVolume = 100

// Mixer controls the volume of the stereo channel pair of one device
type Mixer struct {
	sys hal.System
	dev hal.DeviceID
	log *slog.Logger

	mu       sync.Mutex
	channels [2]uint32
	open     bool

	notifier atomic.Pointer[notifier]
}

// NewMixer creates a mixer for dev
func NewMixer(sys hal.System, dev hal.DeviceID) *Mixer {
	return &Mixer{
		sys: sys,
		dev: dev,
		log: slog.Default().With("component", "mixer", "device", dev),
	}
}

// Mixer returns a mixer for the engine's device. Call it after Init.
func (e *Engine) Mixer() *Mixer {
	return NewMixer(e.sys, e.Device().ID)
}

// Open resolves the stereo pair, which may change between opens, and
// starts listening for volume changes. It returns the maximum volume.
func (m *Mixer) Open() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	channels, err := m.sys.PreferredStereoChannels(m.dev)
	if err != nil {
		return 0, fmt.Errorf("%w: stereo channels: %w", ErrNoDevice, err)
	}

	n, err := newNotifier()
	if err != nil {
		return 0, fmt.Errorf("%w: wakeup pipe: %w", ErrSystem, err)
	}
	m.notifier.Store(n)

	for i, ch := range channels {
		if err := m.sys.AddVolumeListener(m.dev, ch, m); err != nil {
			for _, added := range channels[:i] {
				m.sys.RemoveVolumeListener(m.dev, added, m)
			}
			m.notifier.Store(nil)
			n.close()
			return 0, fmt.Errorf("%w: volume listener on channel %d: %w", ErrNoDevice, ch, err)
		}
	}

	m.channels = channels
	m.open = true
	m.log.Debug("mixer opened", "channels", channels)
	return MaxVolume, nil
}

// PropertyChanged implements hal.PropertyListener. It only posts a wakeup.
func (m *Mixer) PropertyChanged(dev hal.DeviceID, element uint32) {
	if n := m.notifier.Load(); n != nil {
		n.post()
	}
}

// Close stops listening and closes the wakeup pipe. The pipe is closed even
// when removing a listener fails.
func (m *Mixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return nil
	}
	m.open = false

	var errs []error
	for _, ch := range m.channels {
		if err := m.sys.RemoveVolumeListener(m.dev, ch, m); err != nil {
			errs = append(errs, err)
		}
	}

	if n := m.notifier.Swap(nil); n != nil {
		if err := n.close(); err != nil {
			m.log.Warn("cannot close wakeup pipe", "error", err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: remove volume listeners: %w", ErrNoDevice, errors.Join(errs...))
	}
	return nil
}

// Fds returns descriptors that become readable when the device volume
// changes. Nil when the platform has none.
func (m *Mixer) Fds() []int {
	if n := m.notifier.Load(); n != nil {
		return n.fds()
	}
	return nil
}

// Changed returns a channel that receives after device volume changes, for
// hosts that cannot poll descriptors
func (m *Mixer) Changed() <-chan struct{} {
	if n := m.notifier.Load(); n != nil {
		return n.changed()
	}
	return nil
}

// SetVolume sets both channels, each as a level out of MaxVolume
func (m *Mixer) SetVolume(l, r int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return fmt.Errorf("%w: mixer not open", ErrNoDevice)
	}
	for i, level := range [2]int{l, r} {
		if err := m.sys.SetVolumeScalar(m.dev, m.channels[i], toScalar(level)); err != nil {
			return fmt.Errorf("%w: set volume of channel %d: %w", ErrNoDevice, m.channels[i], err)
		}
	}
	return nil
}

// GetVolume returns both channel levels. Pending wakeups are drained first
// so a poller is not woken again for changes this read already reflects.
func (m *Mixer) GetVolume() (l, r int, err error) {
	if n := m.notifier.Load(); n != nil {
		n.drain()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return 0, 0, fmt.Errorf("%w: mixer not open", ErrNoDevice)
	}
	var levels [2]int
	for i, ch := range m.channels {
		v, err := m.sys.VolumeScalar(m.dev, ch)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: read volume of channel %d: %w", ErrNoDevice, ch, err)
		}
		levels[i] = toLevel(v)
	}
	return levels[0], levels[1], nil
}

func toScalar(level int) float32 {
	v := float32(level) / MaxVolume
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toLevel(v float32) int {
	level := int(v * MaxVolume)
	if level < 0 {
		return 0
	}
	if level > MaxVolume {
		return MaxVolume
	}
	return level
}
