//go:build portaudio

// ABOUTME: PortAudio-backed audio system
// ABOUTME: Callback streams view typed PortAudio sample buffers as render bytes
package portaudio

import (
	"log/slog"
	"sync"
	"unsafe"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

func init() {
	hal.Register("portaudio", func() (hal.System, error) {
		s, err := Open()
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

var standardRates = []float64{44100, 48000, 88200, 96000, 176400, 192000}

// System is a hal.System over PortAudio
type System struct {
	log *slog.Logger

	mu      sync.Mutex
	nominal map[hal.DeviceID]float64
	layouts map[hal.DeviceID]hal.ChannelLayout

	hog     *hal.HogTable
	volumes *hal.VolumeTable
}

// Open initializes PortAudio
func Open() (*System, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrap(err, "portaudio: initialize")
	}
	return &System{
		log:     slog.Default().With("component", "portaudio"),
		nominal: make(map[hal.DeviceID]float64),
		layouts: make(map[hal.DeviceID]hal.ChannelLayout),
		hog:     hal.NewHogTable(),
		volumes: hal.NewVolumeTable(),
	}, nil
}

// DeviceIDs are PortAudio device indexes plus one
func idOf(d *portaudio.DeviceInfo) hal.DeviceID {
	return hal.DeviceID(d.Index + 1)
}

func (s *System) device(dev hal.DeviceID) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, errors.Wrap(err, "portaudio: list devices")
	}
	for _, d := range devices {
		if idOf(d) == dev && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, errors.Wrapf(hal.ErrUnknownDevice, "portaudio: device %d", dev)
}

// Name implements hal.System
func (s *System) Name() string { return "portaudio" }

// DefaultOutputDevice implements hal.System
func (s *System) DefaultOutputDevice() (hal.DeviceID, error) {
	d, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return hal.UnknownDevice, errors.Wrap(err, "portaudio: default output device")
	}
	return idOf(d), nil
}

// OutputDevices implements hal.System
func (s *System) OutputDevices() ([]hal.DeviceID, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, errors.Wrap(err, "portaudio: list devices")
	}
	var ids []hal.DeviceID
	for _, d := range devices {
		if d.MaxOutputChannels > 0 {
			ids = append(ids, idOf(d))
		}
	}
	return ids, nil
}

// DeviceName implements hal.System
func (s *System) DeviceName(dev hal.DeviceID) (string, error) {
	d, err := s.device(dev)
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

// NominalSampleRates implements hal.System by probing the standard rates
func (s *System) NominalSampleRates(dev hal.DeviceID) ([]hal.ValueRange, error) {
	d, err := s.device(dev)
	if err != nil {
		return nil, err
	}

	channels := 2
	if d.MaxOutputChannels < channels {
		channels = d.MaxOutputChannels
	}

	var ranges []hal.ValueRange
	for _, rate := range standardRates {
		p := portaudio.StreamParameters{
			Output:     portaudio.StreamDeviceParameters{Device: d, Channels: channels, Latency: d.DefaultHighOutputLatency},
			SampleRate: rate,
		}
		if portaudio.IsFormatSupported(p, []int16(nil)) == nil {
			ranges = append(ranges, hal.ValueRange{Min: rate, Max: rate})
		}
	}
	if len(ranges) == 0 {
		ranges = append(ranges, hal.ValueRange{Min: d.DefaultSampleRate, Max: d.DefaultSampleRate})
	}
	return ranges, nil
}

// SetNominalSampleRate implements hal.System. PortAudio opens streams at
// the stream rate, so the rate is recorded only.
func (s *System) SetNominalSampleRate(dev hal.DeviceID, rate float64) error {
	if _, err := s.device(dev); err != nil {
		return err
	}
	s.mu.Lock()
	s.nominal[dev] = rate
	s.mu.Unlock()
	return nil
}

// SetPreferredChannelLayout implements hal.System; the layout is recorded
// only
func (s *System) SetPreferredChannelLayout(dev hal.DeviceID, layout hal.ChannelLayout) error {
	if _, err := s.device(dev); err != nil {
		return err
	}
	s.mu.Lock()
	s.layouts[dev] = layout
	s.mu.Unlock()
	return nil
}

// HogOwner implements hal.System
func (s *System) HogOwner(dev hal.DeviceID) (int, error) {
	if _, err := s.device(dev); err != nil {
		return hal.NoHogOwner, err
	}
	return s.hog.Owner(dev), nil
}

// SetHogOwner implements hal.System
func (s *System) SetHogOwner(dev hal.DeviceID, pid int) error {
	if _, err := s.device(dev); err != nil {
		return err
	}
	s.hog.SetOwner(dev, pid)
	return nil
}

// PreferredStereoChannels implements hal.System
func (s *System) PreferredStereoChannels(dev hal.DeviceID) ([2]uint32, error) {
	if _, err := s.device(dev); err != nil {
		return [2]uint32{}, err
	}
	return [2]uint32{1, 2}, nil
}

// VolumeScalar implements hal.System
func (s *System) VolumeScalar(dev hal.DeviceID, element uint32) (float32, error) {
	return s.volumes.Get(dev, element), nil
}

// SetVolumeScalar implements hal.System
func (s *System) SetVolumeScalar(dev hal.DeviceID, element uint32, v float32) error {
	s.volumes.Set(dev, element, v)
	return nil
}

// AddVolumeListener implements hal.System
func (s *System) AddVolumeListener(dev hal.DeviceID, element uint32, l hal.PropertyListener) error {
	s.volumes.AddListener(dev, element, l)
	return nil
}

// RemoveVolumeListener implements hal.System
func (s *System) RemoveVolumeListener(dev hal.DeviceID, element uint32, l hal.PropertyListener) error {
	if !s.volumes.RemoveListener(dev, element, l) {
		return errors.Errorf("portaudio: no listener on device %d element %d", dev, element)
	}
	return nil
}

// NewRenderUnit implements hal.System
func (s *System) NewRenderUnit(subtype hal.UnitSubtype, dev hal.DeviceID) (hal.RenderUnit, error) {
	d, err := s.device(dev)
	if err != nil {
		return nil, err
	}
	return &unit{sys: s, dev: dev, info: d, frames: 1024}, nil
}

// Unload implements hal.System
func (s *System) Unload() error {
	return errors.Wrap(portaudio.Terminate(), "portaudio: terminate")
}

type unit struct {
	sys  *System
	dev  hal.DeviceID
	info *portaudio.DeviceInfo

	mu          sync.Mutex
	desc        hal.StreamDescription
	fn          hal.RenderFunc
	frames      uint32
	initialized bool
	stream      *portaudio.Stream
	running     bool
	gains       []float32
}

func (u *unit) SetStreamFormat(desc hal.StreamDescription) error {
	if _, err := u.callback(desc); err != nil {
		return err
	}
	if int(desc.ChannelsPerFrame) > u.info.MaxOutputChannels {
		return errors.Wrapf(hal.ErrNotSupported, "portaudio: %d channels on %q", desc.ChannelsPerFrame, u.info.Name)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.initialized {
		return errors.New("portaudio: format change on initialized unit")
	}
	u.desc = desc
	return nil
}

// bytesOf views a typed sample buffer as its underlying bytes
func bytesOf[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// callback returns a PortAudio stream callback of the sample type desc
// describes
func (u *unit) callback(desc hal.StreamDescription) (interface{}, error) {
	if desc.FormatID != hal.FormatLinearPCM || desc.Has(hal.FlagIsBigEndian) || desc.ChannelsPerFrame == 0 {
		return nil, errors.Wrapf(hal.ErrNotSupported, "portaudio: %s", desc)
	}

	signed := desc.Has(hal.FlagIsSignedInteger)
	switch {
	case desc.Has(hal.FlagIsFloat) && desc.BitsPerChannel == 32:
		return func(out []float32) { u.render(bytesOf(out)) }, nil
	case desc.BitsPerChannel == 8 && !signed:
		return func(out []uint8) { u.render(out) }, nil
	case desc.BitsPerChannel == 8:
		return func(out []int8) { u.render(bytesOf(out)) }, nil
	case desc.BitsPerChannel == 16 && signed:
		return func(out []int16) { u.render(bytesOf(out)) }, nil
	case desc.BitsPerChannel == 24 && signed:
		return func(out []portaudio.Int24) { u.render(bytesOf(out)) }, nil
	case desc.BitsPerChannel == 32 && signed:
		return func(out []int32) { u.render(bytesOf(out)) }, nil
	}
	return nil, errors.Wrapf(hal.ErrNotSupported, "portaudio: %s", desc)
}

func (u *unit) render(out []byte) {
	if u.fn(out) != hal.RenderOK {
		clear(out)
		return
	}
	u.sys.volumes.Fill(u.dev, u.gains)
	hal.ApplyGain(out, u.desc, u.gains)
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

	if u.desc.BytesPerFrame == 0 || u.fn == nil {
		return errors.New("portaudio: unit needs a format and a render callback")
	}
	u.initialized = true
	return nil
}

func (u *unit) BufferFrameSizeRange() (hal.ValueRange, error) {
	return hal.ValueRange{Min: 64, Max: 4096}, nil
}

func (u *unit) SetBufferFrameSize(frames uint32) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.stream != nil {
		return errors.New("portaudio: buffer size change on open stream")
	}
	u.frames = frames
	return nil
}

func (u *unit) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.initialized {
		return errors.New("portaudio: unit not initialized")
	}

	if u.stream == nil {
		cb, err := u.callback(u.desc)
		if err != nil {
			return err
		}
		u.gains = make([]float32, u.desc.ChannelsPerFrame)

		p := portaudio.StreamParameters{
			Output: portaudio.StreamDeviceParameters{
				Device:   u.info,
				Channels: int(u.desc.ChannelsPerFrame),
				Latency:  u.info.DefaultHighOutputLatency,
			},
			SampleRate:      u.desc.SampleRate,
			FramesPerBuffer: int(u.frames),
		}
		stream, err := portaudio.OpenStream(p, cb)
		if err != nil {
			return errors.Wrapf(err, "portaudio: open stream on %q", u.info.Name)
		}
		u.stream = stream
		u.sys.log.Info("stream opened", "device", u.info.Name, "format", u.desc.String(), "frames", u.frames)
	}

	if u.running {
		return nil
	}
	if err := u.stream.Start(); err != nil {
		return errors.Wrap(err, "portaudio: start stream")
	}
	u.running = true
	return nil
}

// Stop lets the callback in progress return before the stream halts
func (u *unit) Stop() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.stream == nil || !u.running {
		return nil
	}
	u.running = false
	return errors.Wrap(u.stream.Stop(), "portaudio: stop stream")
}

func (u *unit) Uninitialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var err error
	if u.stream != nil {
		err = errors.Wrap(u.stream.Close(), "portaudio: close stream")
		u.stream = nil
	}
	u.running = false
	u.initialized = false
	return err
}

func (u *unit) Dispose() error {
	if err := u.Stop(); err != nil {
		return err
	}
	return u.Uninitialize()
}
