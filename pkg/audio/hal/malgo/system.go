// ABOUTME: miniaudio-backed audio system using malgo
// ABOUTME: Enumerates playback devices and keeps hog, layout and volume state per process
package malgo

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	ma "github.com/gen2brain/malgo"
	"github.com/pkg/errors"
)

func init() {
	hal.Register("malgo", func() (hal.System, error) {
		s, err := Open()
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Sample rates miniaudio accepts when a device reports no fixed rate
const (
	minSampleRate = 8000
	maxSampleRate = 384000
)

// System is a hal.System over a miniaudio context
type System struct {
	ctx *ma.AllocatedContext
	log *slog.Logger

	mu      sync.Mutex
	devices []ma.DeviceInfo // DeviceID n is devices[n-1]
	nominal map[hal.DeviceID]float64
	layouts map[hal.DeviceID]hal.ChannelLayout

	hog     *hal.HogTable
	volumes *hal.VolumeTable
}

// Open initializes miniaudio and enumerates playback devices
func Open() (*System, error) {
	logger := slog.Default().With("component", "malgo")

	ctx, err := ma.InitContext(nil, ma.ContextConfig{}, func(message string) {
		logger.Debug(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, errors.Wrap(err, "malgo: init context")
	}

	s := &System{
		ctx:     ctx,
		log:     logger,
		nominal: make(map[hal.DeviceID]float64),
		layouts: make(map[hal.DeviceID]hal.ChannelLayout),
		hog:     hal.NewHogTable(),
		volumes: hal.NewVolumeTable(),
	}
	if _, err := s.refresh(); err != nil {
		s.Unload()
		return nil, err
	}
	return s, nil
}

// refresh re-enumerates devices. Ids stay stable as long as the device
// list does not change order.
func (s *System) refresh() ([]ma.DeviceInfo, error) {
	infos, err := s.ctx.Devices(ma.Playback)
	if err != nil {
		return nil, errors.Wrap(err, "malgo: enumerate playback devices")
	}

	s.mu.Lock()
	s.devices = infos
	s.mu.Unlock()
	return infos, nil
}

func (s *System) info(dev hal.DeviceID) (ma.DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dev == hal.UnknownDevice || int(dev) > len(s.devices) {
		return ma.DeviceInfo{}, errors.Wrapf(hal.ErrUnknownDevice, "malgo: device %d", dev)
	}
	return s.devices[dev-1], nil
}

// Name implements hal.System
func (s *System) Name() string { return "malgo" }

// DefaultOutputDevice implements hal.System. Backends that flag no default
// get their first device.
func (s *System) DefaultOutputDevice() (hal.DeviceID, error) {
	infos, err := s.refresh()
	if err != nil {
		return hal.UnknownDevice, err
	}
	for i, info := range infos {
		if info.IsDefault != 0 {
			return hal.DeviceID(i + 1), nil
		}
	}
	if len(infos) > 0 {
		return 1, nil
	}
	return hal.UnknownDevice, nil
}

// OutputDevices implements hal.System
func (s *System) OutputDevices() ([]hal.DeviceID, error) {
	infos, err := s.refresh()
	if err != nil {
		return nil, err
	}
	ids := make([]hal.DeviceID, len(infos))
	for i := range infos {
		ids[i] = hal.DeviceID(i + 1)
	}
	return ids, nil
}

// DeviceName implements hal.System
func (s *System) DeviceName(dev hal.DeviceID) (string, error) {
	info, err := s.info(dev)
	if err != nil {
		return "", err
	}
	return info.Name(), nil
}

// NominalSampleRates implements hal.System from the device's native data
// formats
func (s *System) NominalSampleRates(dev hal.DeviceID) ([]hal.ValueRange, error) {
	info, err := s.info(dev)
	if err != nil {
		return nil, err
	}

	full, err := s.ctx.DeviceInfo(ma.Playback, info.ID, ma.Shared)
	if err != nil {
		return nil, errors.Wrapf(err, "malgo: device info for %q", info.Name())
	}
	return rateRanges(full.Formats), nil
}

// rateRanges turns native formats into sorted, de-duplicated rate ranges.
// A zero rate means the device takes any rate.
func rateRanges(formats []ma.DataFormat) []hal.ValueRange {
	if len(formats) == 0 {
		return []hal.ValueRange{{Min: minSampleRate, Max: maxSampleRate}}
	}

	seen := make(map[uint32]bool)
	var ranges []hal.ValueRange
	for _, f := range formats {
		if seen[f.SampleRate] {
			continue
		}
		seen[f.SampleRate] = true

		if f.SampleRate == 0 {
			ranges = append(ranges, hal.ValueRange{Min: minSampleRate, Max: maxSampleRate})
			continue
		}
		rate := float64(f.SampleRate)
		ranges = append(ranges, hal.ValueRange{Min: rate, Max: rate})
	}

	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Min != ranges[j].Min {
			return ranges[i].Min < ranges[j].Min
		}
		return ranges[i].Max < ranges[j].Max
	})
	return ranges
}

// SetNominalSampleRate implements hal.System. miniaudio picks the device
// rate itself, so the rate is recorded and reported only.
func (s *System) SetNominalSampleRate(dev hal.DeviceID, rate float64) error {
	if _, err := s.info(dev); err != nil {
		return err
	}

	s.mu.Lock()
	s.nominal[dev] = rate
	s.mu.Unlock()
	return nil
}

// NominalRate returns the rate last set on dev, or 0
func (s *System) NominalRate(dev hal.DeviceID) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nominal[dev]
}

// SetPreferredChannelLayout implements hal.System. The layout is recorded;
// miniaudio keeps its default channel map.
func (s *System) SetPreferredChannelLayout(dev hal.DeviceID, layout hal.ChannelLayout) error {
	if _, err := s.info(dev); err != nil {
		return err
	}

	s.mu.Lock()
	s.layouts[dev] = layout
	s.mu.Unlock()
	return nil
}

// HogOwner implements hal.System
func (s *System) HogOwner(dev hal.DeviceID) (int, error) {
	if _, err := s.info(dev); err != nil {
		return hal.NoHogOwner, err
	}
	return s.hog.Owner(dev), nil
}

// SetHogOwner implements hal.System. A hogged device is opened in
// exclusive share mode the next time its unit starts.
func (s *System) SetHogOwner(dev hal.DeviceID, pid int) error {
	if _, err := s.info(dev); err != nil {
		return err
	}
	s.hog.SetOwner(dev, pid)
	return nil
}

// PreferredStereoChannels implements hal.System
func (s *System) PreferredStereoChannels(dev hal.DeviceID) ([2]uint32, error) {
	if _, err := s.info(dev); err != nil {
		return [2]uint32{}, err
	}
	return [2]uint32{1, 2}, nil
}

// VolumeScalar implements hal.System
func (s *System) VolumeScalar(dev hal.DeviceID, element uint32) (float32, error) {
	if _, err := s.info(dev); err != nil {
		return 0, err
	}
	return s.volumes.Get(dev, element), nil
}

// SetVolumeScalar implements hal.System
func (s *System) SetVolumeScalar(dev hal.DeviceID, element uint32, v float32) error {
	if _, err := s.info(dev); err != nil {
		return err
	}
	s.volumes.Set(dev, element, v)
	return nil
}

// AddVolumeListener implements hal.System
func (s *System) AddVolumeListener(dev hal.DeviceID, element uint32, l hal.PropertyListener) error {
	if _, err := s.info(dev); err != nil {
		return err
	}
	s.volumes.AddListener(dev, element, l)
	return nil
}

// RemoveVolumeListener implements hal.System
func (s *System) RemoveVolumeListener(dev hal.DeviceID, element uint32, l hal.PropertyListener) error {
	if !s.volumes.RemoveListener(dev, element, l) {
		return errors.Errorf("malgo: no listener on device %d element %d", dev, element)
	}
	return nil
}

// NewRenderUnit implements hal.System
func (s *System) NewRenderUnit(subtype hal.UnitSubtype, dev hal.DeviceID) (hal.RenderUnit, error) {
	info, err := s.info(dev)
	if err != nil {
		return nil, err
	}
	return newUnit(s, subtype, dev, info), nil
}

// Unload implements hal.System
func (s *System) Unload() error {
	if s.ctx == nil {
		return nil
	}
	err := s.ctx.Uninit()
	s.ctx.Free()
	s.ctx = nil
	return errors.Wrap(err, "malgo: uninit context")
}
