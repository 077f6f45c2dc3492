// ABOUTME: miniaudio playback device wrapped as a render unit
// ABOUTME: The miniaudio data callback runs the render function with software gain
package malgo

import (
	"os"
	"sync"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	ma "github.com/gen2brain/malgo"
	"github.com/pkg/errors"
)

// Period sizes offered to the engine. miniaudio takes any size; these keep
// latency within what the common backends honour.
const (
	minPeriodFrames     = 64
	maxPeriodFrames     = 4096
	defaultPeriodFrames = 1024
)

type unit struct {
	sys     *System
	subtype hal.UnitSubtype
	dev     hal.DeviceID
	id      ma.DeviceID
	name    string

	mu          sync.Mutex
	desc        hal.StreamDescription
	format      ma.FormatType
	fn          hal.RenderFunc
	frames      uint32
	initialized bool
	device      *ma.Device

	// touched only by the data callback while the device runs
	gains []float32
}

func newUnit(s *System, subtype hal.UnitSubtype, dev hal.DeviceID, info ma.DeviceInfo) *unit {
	return &unit{
		sys:     s,
		subtype: subtype,
		dev:     dev,
		id:      info.ID,
		name:    info.Name(),
		frames:  defaultPeriodFrames,
	}
}

// formatType maps a stream description to a miniaudio sample format.
// miniaudio works in native little-endian samples only.
func formatType(desc hal.StreamDescription) (ma.FormatType, error) {
	if desc.FormatID != hal.FormatLinearPCM || desc.Has(hal.FlagIsBigEndian) || desc.ChannelsPerFrame == 0 {
		return ma.FormatUnknown, errors.Wrapf(hal.ErrNotSupported, "malgo: %s", desc)
	}

	signed := desc.Has(hal.FlagIsSignedInteger)
	switch {
	case desc.Has(hal.FlagIsFloat) && desc.BitsPerChannel == 32:
		return ma.FormatF32, nil
	case desc.BitsPerChannel == 8 && !signed:
		return ma.FormatU8, nil
	case desc.BitsPerChannel == 16 && signed:
		return ma.FormatS16, nil
	case desc.BitsPerChannel == 24 && signed:
		return ma.FormatS24, nil
	case desc.BitsPerChannel == 32 && signed:
		return ma.FormatS32, nil
	}
	return ma.FormatUnknown, errors.Wrapf(hal.ErrNotSupported, "malgo: %s", desc)
}

func (u *unit) SetStreamFormat(desc hal.StreamDescription) error {
	format, err := formatType(desc)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.initialized {
		return errors.New("malgo: format change on initialized unit")
	}
	u.desc = desc
	u.format = format
	return nil
}

func (u *unit) SetRenderCallback(fn hal.RenderFunc) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fn = fn
	return nil
}

func (u *unit) Initialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.format == ma.FormatUnknown || u.fn == nil {
		return errors.New("malgo: unit needs a format and a render callback")
	}
	u.initialized = true
	return nil
}

func (u *unit) BufferFrameSizeRange() (hal.ValueRange, error) {
	return hal.ValueRange{Min: minPeriodFrames, Max: maxPeriodFrames}, nil
}

// SetBufferFrameSize takes effect when the device is next created; an
// idle device is released so that happens on the next Start.
func (u *unit) SetBufferFrameSize(frames uint32) error {
	if frames < minPeriodFrames || frames > maxPeriodFrames {
		return errors.Wrapf(hal.ErrNotSupported, "malgo: period of %d frames", frames)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.device != nil {
		if u.device.IsStarted() {
			return errors.New("malgo: period change on running device")
		}
		u.device.Uninit()
		u.device = nil
	}
	u.frames = frames
	return nil
}

// Start creates the miniaudio device on first use; the period size has to
// be known by then
func (u *unit) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.initialized {
		return errors.New("malgo: unit not initialized")
	}

	if u.device == nil {
		cfg := ma.DefaultDeviceConfig(ma.Playback)
		cfg.Playback.Format = u.format
		cfg.Playback.Channels = u.desc.ChannelsPerFrame
		cfg.SampleRate = uint32(u.desc.SampleRate)
		cfg.PeriodSizeInFrames = u.frames
		cfg.Alsa.NoMMap = 1
		if u.subtype == hal.HALOutput {
			cfg.Playback.DeviceID = u.id.Pointer()
		}
		if u.sys.hog.Owner(u.dev) == os.Getpid() {
			cfg.Playback.ShareMode = ma.Exclusive
		}

		u.gains = make([]float32, u.desc.ChannelsPerFrame)

		device, err := ma.InitDevice(u.sys.ctx.Context, cfg, ma.DeviceCallbacks{
			Data: u.data,
		})
		if err != nil {
			return errors.Wrapf(err, "malgo: init device %q", u.name)
		}
		u.device = device

		u.sys.log.Info("device created", "device", u.name, "format", u.desc.String(),
			"period_frames", u.frames, "exclusive", cfg.Playback.ShareMode == ma.Exclusive)
	}

	if err := u.device.Start(); err != nil {
		return errors.Wrapf(err, "malgo: start device %q", u.name)
	}
	return nil
}

func (u *unit) data(out, in []byte, frames uint32) {
	if u.fn(out) != hal.RenderOK {
		clear(out)
		return
	}
	u.sys.volumes.Fill(u.dev, u.gains)
	hal.ApplyGain(out, u.desc, u.gains)
}

// Stop returns once miniaudio's worker has left the data callback
func (u *unit) Stop() error {
	u.mu.Lock()
	device := u.device
	u.mu.Unlock()

	if device == nil || !device.IsStarted() {
		return nil
	}
	return errors.Wrapf(device.Stop(), "malgo: stop device %q", u.name)
}

func (u *unit) Uninitialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.device != nil {
		u.device.Uninit()
		u.device = nil
	}
	u.initialized = false
	return nil
}

func (u *unit) Dispose() error {
	if err := u.Stop(); err != nil {
		u.sys.log.Warn("stop on dispose failed", "device", u.name, "error", err)
	}
	return u.Uninitialize()
}
