// ABOUTME: In-memory audio system for tests and device-less playback
// ABOUTME: Scripted devices, properties, hog owners, volumes and failure injection
package sim

import (
	"sync"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	"github.com/pkg/errors"
)

func init() {
	hal.Register("sim", func() (hal.System, error) {
		s := Default()
		s.SetClock(ClockRealtime)
		return s, nil
	})
}

// Operation names accepted by Fail
const (
	OpDefaultOutputDevice       = "DefaultOutputDevice"
	OpOutputDevices             = "OutputDevices"
	OpNominalSampleRates        = "NominalSampleRates"
	OpSetNominalSampleRate      = "SetNominalSampleRate"
	OpSetPreferredChannelLayout = "SetPreferredChannelLayout"
	OpHogOwner                  = "HogOwner"
	OpSetHogOwner               = "SetHogOwner"
	OpPreferredStereoChannels   = "PreferredStereoChannels"
	OpVolumeScalar              = "VolumeScalar"
	OpSetVolumeScalar           = "SetVolumeScalar"
	OpAddVolumeListener         = "AddVolumeListener"
	OpRemoveVolumeListener      = "RemoveVolumeListener"
	OpNewRenderUnit             = "NewRenderUnit"
	OpSetStreamFormat           = "SetStreamFormat"
	OpInitialize                = "Initialize"
	OpBufferFrameSizeRange      = "BufferFrameSizeRange"
	OpSetBufferFrameSize        = "SetBufferFrameSize"
	OpStart                     = "Start"
	OpStop                      = "Stop"
)

// DeviceConfig scripts one simulated output device
type DeviceConfig struct {
	Name           string
	Default        bool
	Rates          []hal.ValueRange
	NominalRate    float64
	StereoChannels [2]uint32
	BufferFrames   hal.ValueRange
}

type device struct {
	id      hal.DeviceID
	cfg     DeviceConfig
	nominal float64
	layout  *hal.ChannelLayout
}

// System is a scripted hal.System. All methods are safe for concurrent use.
type System struct {
	mu       sync.Mutex
	devices  []*device
	failures map[string]error
	units    []*Unit
	clock    Clock
	unloaded bool

	hog     *hal.HogTable
	volumes *hal.VolumeTable
}

// New creates a system with the given devices; ids are assigned from 1
// in order
func New(devices ...DeviceConfig) *System {
	s := &System{
		failures: make(map[string]error),
		clock:    ClockManual,
		hog:      hal.NewHogTable(),
		volumes:  hal.NewVolumeTable(),
	}
	for i, cfg := range devices {
		if cfg.StereoChannels == [2]uint32{} {
			cfg.StereoChannels = [2]uint32{1, 2}
		}
		if cfg.BufferFrames == (hal.ValueRange{}) {
			cfg.BufferFrames = hal.ValueRange{Min: 14, Max: 4096}
		}
		s.devices = append(s.devices, &device{
			id:      hal.DeviceID(i + 1),
			cfg:     cfg,
			nominal: cfg.NominalRate,
		})
	}
	return s
}

// Default creates a system with a built-in default output and a USB DAC
func Default() *System {
	return New(
		DeviceConfig{
			Name:        "Built-in Output",
			Default:     true,
			NominalRate: 44100,
			Rates: []hal.ValueRange{
				{Min: 44100, Max: 44100},
				{Min: 48000, Max: 48000},
				{Min: 88200, Max: 88200},
				{Min: 96000, Max: 96000},
			},
		},
		DeviceConfig{
			Name:        "USB DAC",
			NominalRate: 48000,
			Rates:       []hal.ValueRange{{Min: 44100, Max: 192000}},
		},
	)
}

// SetClock selects how units created afterwards invoke their callback
func (s *System) SetClock(c Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
}

// Fail makes every later call of op return err; a nil err clears it
func (s *System) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *System) failure(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failures[op]; ok {
		return errors.Wrap(err, "sim: "+op)
	}
	return nil
}

func (s *System) lookup(dev hal.DeviceID) (*device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.devices {
		if d.id == dev {
			return d, nil
		}
	}
	return nil, errors.Wrapf(hal.ErrUnknownDevice, "sim: device %d", dev)
}

// NominalRate returns the rate a device currently runs at
func (s *System) NominalRate(dev hal.DeviceID) float64 {
	d, err := s.lookup(dev)
	if err != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return d.nominal
}

// Layout returns the last layout set on a device
func (s *System) Layout(dev hal.DeviceID) (hal.ChannelLayout, bool) {
	d, err := s.lookup(dev)
	if err != nil {
		return hal.ChannelLayout{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.layout == nil {
		return hal.ChannelLayout{}, false
	}
	return *d.layout, true
}

// Units returns every unit created so far, oldest first
func (s *System) Units() []*Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Unit(nil), s.units...)
}

// LastUnit returns the most recently created unit, or nil
func (s *System) LastUnit() *Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.units) == 0 {
		return nil
	}
	return s.units[len(s.units)-1]
}

// Unloaded reports whether Unload was called
func (s *System) Unloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unloaded
}

// Name implements hal.System
func (s *System) Name() string { return "sim" }

// DefaultOutputDevice implements hal.System
func (s *System) DefaultOutputDevice() (hal.DeviceID, error) {
	if err := s.failure(OpDefaultOutputDevice); err != nil {
		return hal.UnknownDevice, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.devices {
		if d.cfg.Default {
			return d.id, nil
		}
	}
	return hal.UnknownDevice, nil
}

// OutputDevices implements hal.System
func (s *System) OutputDevices() ([]hal.DeviceID, error) {
	if err := s.failure(OpOutputDevices); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]hal.DeviceID, len(s.devices))
	for i, d := range s.devices {
		ids[i] = d.id
	}
	return ids, nil
}

// DeviceName implements hal.System
func (s *System) DeviceName(dev hal.DeviceID) (string, error) {
	d, err := s.lookup(dev)
	if err != nil {
		return "", err
	}
	return d.cfg.Name, nil
}

// NominalSampleRates implements hal.System
func (s *System) NominalSampleRates(dev hal.DeviceID) ([]hal.ValueRange, error) {
	if err := s.failure(OpNominalSampleRates); err != nil {
		return nil, err
	}
	d, err := s.lookup(dev)
	if err != nil {
		return nil, err
	}
	return append([]hal.ValueRange(nil), d.cfg.Rates...), nil
}

// SetNominalSampleRate implements hal.System
func (s *System) SetNominalSampleRate(dev hal.DeviceID, rate float64) error {
	if err := s.failure(OpSetNominalSampleRate); err != nil {
		return err
	}
	d, err := s.lookup(dev)
	if err != nil {
		return err
	}

	supported := false
	for _, r := range d.cfg.Rates {
		if r.Contains(rate) {
			supported = true
			break
		}
	}
	if !supported {
		return errors.Wrapf(hal.ErrNotSupported, "sim: nominal rate %g", rate)
	}

	s.mu.Lock()
	d.nominal = rate
	s.mu.Unlock()
	return nil
}

// SetPreferredChannelLayout implements hal.System
func (s *System) SetPreferredChannelLayout(dev hal.DeviceID, layout hal.ChannelLayout) error {
	if err := s.failure(OpSetPreferredChannelLayout); err != nil {
		return err
	}
	d, err := s.lookup(dev)
	if err != nil {
		return err
	}

	layout.Descriptions = append([]hal.ChannelDescription(nil), layout.Descriptions...)
	s.mu.Lock()
	d.layout = &layout
	s.mu.Unlock()
	return nil
}

// HogOwner implements hal.System
func (s *System) HogOwner(dev hal.DeviceID) (int, error) {
	if err := s.failure(OpHogOwner); err != nil {
		return hal.NoHogOwner, err
	}
	if _, err := s.lookup(dev); err != nil {
		return hal.NoHogOwner, err
	}
	return s.hog.Owner(dev), nil
}

// SetHogOwner implements hal.System
func (s *System) SetHogOwner(dev hal.DeviceID, pid int) error {
	if err := s.failure(OpSetHogOwner); err != nil {
		return err
	}
	if _, err := s.lookup(dev); err != nil {
		return err
	}
	s.hog.SetOwner(dev, pid)
	return nil
}

// PreferredStereoChannels implements hal.System
func (s *System) PreferredStereoChannels(dev hal.DeviceID) ([2]uint32, error) {
	if err := s.failure(OpPreferredStereoChannels); err != nil {
		return [2]uint32{}, err
	}
	d, err := s.lookup(dev)
	if err != nil {
		return [2]uint32{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return d.cfg.StereoChannels, nil
}

// SetStereoChannels changes the stereo pair, as re-routing a device would
func (s *System) SetStereoChannels(dev hal.DeviceID, channels [2]uint32) {
	d, err := s.lookup(dev)
	if err != nil {
		return
	}
	s.mu.Lock()
	d.cfg.StereoChannels = channels
	s.mu.Unlock()
}

// VolumeScalar implements hal.System
func (s *System) VolumeScalar(dev hal.DeviceID, element uint32) (float32, error) {
	if err := s.failure(OpVolumeScalar); err != nil {
		return 0, err
	}
	if _, err := s.lookup(dev); err != nil {
		return 0, err
	}
	return s.volumes.Get(dev, element), nil
}

// SetVolumeScalar implements hal.System. Listeners are notified on another
// goroutine, as a platform would from its own notification thread.
func (s *System) SetVolumeScalar(dev hal.DeviceID, element uint32, v float32) error {
	if err := s.failure(OpSetVolumeScalar); err != nil {
		return err
	}
	if _, err := s.lookup(dev); err != nil {
		return err
	}
	s.volumes.Set(dev, element, v)
	return nil
}

// AddVolumeListener implements hal.System
func (s *System) AddVolumeListener(dev hal.DeviceID, element uint32, l hal.PropertyListener) error {
	if err := s.failure(OpAddVolumeListener); err != nil {
		return err
	}
	if _, err := s.lookup(dev); err != nil {
		return err
	}
	s.volumes.AddListener(dev, element, l)
	return nil
}

// RemoveVolumeListener implements hal.System
func (s *System) RemoveVolumeListener(dev hal.DeviceID, element uint32, l hal.PropertyListener) error {
	if err := s.failure(OpRemoveVolumeListener); err != nil {
		return err
	}
	if _, err := s.lookup(dev); err != nil {
		return err
	}
	if !s.volumes.RemoveListener(dev, element, l) {
		return errors.Errorf("sim: no listener on device %d element %d", dev, element)
	}
	return nil
}

// NewRenderUnit implements hal.System
func (s *System) NewRenderUnit(subtype hal.UnitSubtype, dev hal.DeviceID) (hal.RenderUnit, error) {
	if err := s.failure(OpNewRenderUnit); err != nil {
		return nil, err
	}
	d, err := s.lookup(dev)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := newUnit(s, subtype, dev, d.cfg.BufferFrames, s.clock)
	s.units = append(s.units, u)
	return u, nil
}

// Unload implements hal.System
func (s *System) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unloaded = true
	return nil
}
