// ABOUTME: oto-backed audio system with a single default output device
// ABOUTME: oto allows one context per process, so every unit shares it
package oto

import (
	"log/slog"
	"sync"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"
)

func init() {
	hal.Register("oto", func() (hal.System, error) {
		return New(), nil
	})
}

const (
	deviceID   hal.DeviceID = 1
	deviceName              = "Default Output (oto)"
)

var (
	// oto cannot create a second context or change the format of the
	// first one
	contextMu   sync.Mutex
	context     *oto.Context
	contextOpts oto.NewContextOptions
)

// sharedContext returns the process context, creating it with opts on
// first use
func sharedContext(opts oto.NewContextOptions) (*oto.Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()

	if context != nil {
		if opts.SampleRate != contextOpts.SampleRate ||
			opts.ChannelCount != contextOpts.ChannelCount ||
			opts.Format != contextOpts.Format {
			return nil, errors.Wrapf(hal.ErrNotSupported,
				"oto: context already running at %dHz %dch", contextOpts.SampleRate, contextOpts.ChannelCount)
		}
		return context, nil
	}

	ctx, ready, err := oto.NewContext(&opts)
	if err != nil {
		return nil, errors.Wrap(err, "oto: create context")
	}
	<-ready

	context = ctx
	contextOpts = opts
	return ctx, nil
}

// System is a hal.System over oto
type System struct {
	log *slog.Logger

	mu      sync.Mutex
	nominal float64
	layout  *hal.ChannelLayout

	hog     *hal.HogTable
	volumes *hal.VolumeTable
}

// New creates the system; the oto context is created by the first unit
// that starts
func New() *System {
	return &System{
		log:     slog.Default().With("component", "oto"),
		hog:     hal.NewHogTable(),
		volumes: hal.NewVolumeTable(),
	}
}

func check(dev hal.DeviceID) error {
	if dev != deviceID {
		return errors.Wrapf(hal.ErrUnknownDevice, "oto: device %d", dev)
	}
	return nil
}

// Name implements hal.System
func (s *System) Name() string { return "oto" }

// DefaultOutputDevice implements hal.System
func (s *System) DefaultOutputDevice() (hal.DeviceID, error) { return deviceID, nil }

// OutputDevices implements hal.System
func (s *System) OutputDevices() ([]hal.DeviceID, error) { return []hal.DeviceID{deviceID}, nil }

// DeviceName implements hal.System
func (s *System) DeviceName(dev hal.DeviceID) (string, error) {
	if err := check(dev); err != nil {
		return "", err
	}
	return deviceName, nil
}

// NominalSampleRates implements hal.System. While a context runs only its
// rate is available.
func (s *System) NominalSampleRates(dev hal.DeviceID) ([]hal.ValueRange, error) {
	if err := check(dev); err != nil {
		return nil, err
	}

	contextMu.Lock()
	defer contextMu.Unlock()

	if context != nil {
		rate := float64(contextOpts.SampleRate)
		return []hal.ValueRange{{Min: rate, Max: rate}}, nil
	}
	return []hal.ValueRange{{Min: 8000, Max: 192000}}, nil
}

// SetNominalSampleRate implements hal.System; the rate is recorded only
func (s *System) SetNominalSampleRate(dev hal.DeviceID, rate float64) error {
	if err := check(dev); err != nil {
		return err
	}
	s.mu.Lock()
	s.nominal = rate
	s.mu.Unlock()
	return nil
}

// SetPreferredChannelLayout implements hal.System; the layout is recorded
// only
func (s *System) SetPreferredChannelLayout(dev hal.DeviceID, layout hal.ChannelLayout) error {
	if err := check(dev); err != nil {
		return err
	}
	s.mu.Lock()
	s.layout = &layout
	s.mu.Unlock()
	return nil
}

// HogOwner implements hal.System
func (s *System) HogOwner(dev hal.DeviceID) (int, error) {
	if err := check(dev); err != nil {
		return hal.NoHogOwner, err
	}
	return s.hog.Owner(dev), nil
}

// SetHogOwner implements hal.System
func (s *System) SetHogOwner(dev hal.DeviceID, pid int) error {
	if err := check(dev); err != nil {
		return err
	}
	s.hog.SetOwner(dev, pid)
	return nil
}

// PreferredStereoChannels implements hal.System
func (s *System) PreferredStereoChannels(dev hal.DeviceID) ([2]uint32, error) {
	if err := check(dev); err != nil {
		return [2]uint32{}, err
	}
	return [2]uint32{1, 2}, nil
}

// VolumeScalar implements hal.System
func (s *System) VolumeScalar(dev hal.DeviceID, element uint32) (float32, error) {
	if err := check(dev); err != nil {
		return 0, err
	}
	return s.volumes.Get(dev, element), nil
}

// SetVolumeScalar implements hal.System
func (s *System) SetVolumeScalar(dev hal.DeviceID, element uint32, v float32) error {
	if err := check(dev); err != nil {
		return err
	}
	s.volumes.Set(dev, element, v)
	return nil
}

// AddVolumeListener implements hal.System
func (s *System) AddVolumeListener(dev hal.DeviceID, element uint32, l hal.PropertyListener) error {
	if err := check(dev); err != nil {
		return err
	}
	s.volumes.AddListener(dev, element, l)
	return nil
}

// RemoveVolumeListener implements hal.System
func (s *System) RemoveVolumeListener(dev hal.DeviceID, element uint32, l hal.PropertyListener) error {
	if !s.volumes.RemoveListener(dev, element, l) {
		return errors.Errorf("oto: no listener on device %d element %d", dev, element)
	}
	return nil
}

// NewRenderUnit implements hal.System
func (s *System) NewRenderUnit(subtype hal.UnitSubtype, dev hal.DeviceID) (hal.RenderUnit, error) {
	if err := check(dev); err != nil {
		return nil, err
	}
	return &unit{sys: s, frames: defaultFrames}, nil
}

// Unload implements hal.System. The context cannot be closed, only
// suspended.
func (s *System) Unload() error {
	contextMu.Lock()
	defer contextMu.Unlock()

	if context == nil {
		return nil
	}
	return errors.Wrap(context.Suspend(), "oto: suspend context")
}
