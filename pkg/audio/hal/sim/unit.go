// ABOUTME: Simulated render unit driven by a manual, free-running or realtime clock
// ABOUTME: Records every rendered buffer and callback status for inspection
package sim

import (
	"runtime"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	"github.com/pkg/errors"
)

// Clock selects how a unit invokes its render callback
type Clock int

const (
	// ClockManual invokes the callback only from Cycle
	ClockManual Clock = iota
	// ClockFree invokes the callback back to back on its own goroutine
	ClockFree
	// ClockRealtime invokes the callback once per buffer period
	ClockRealtime
)

// stalePattern fills the device buffer before every callback so tests can
// tell bytes the callback wrote from bytes it left alone
const stalePattern = 0xAA

const defaultBufferFrames = 512

// Unit is a simulated hal.RenderUnit
type Unit struct {
	sys        *System
	subtype    hal.UnitSubtype
	dev        hal.DeviceID
	frameRange hal.ValueRange
	clock      Clock

	mu          sync.Mutex
	desc        hal.StreamDescription
	haveFormat  bool
	fn          hal.RenderFunc
	frames      uint32
	initialized bool
	running     bool
	disposed    bool
	stop        chan struct{}
	done        chan struct{}
	rendered    []byte
	statuses    map[hal.RenderStatus]int

	// held for the duration of each callback
	cycleMu sync.Mutex
	buf     []byte
	gains   []float32
}

func newUnit(sys *System, subtype hal.UnitSubtype, dev hal.DeviceID, frames hal.ValueRange, clock Clock) *Unit {
	return &Unit{
		sys:        sys,
		subtype:    subtype,
		dev:        dev,
		frameRange: frames,
		clock:      clock,
		frames:     defaultBufferFrames,
		statuses:   make(map[hal.RenderStatus]int),
	}
}

// Subtype returns the subtype the unit was created with
func (u *Unit) Subtype() hal.UnitSubtype { return u.subtype }

// Device returns the device the unit plays on
func (u *Unit) Device() hal.DeviceID { return u.dev }

// SetStreamFormat implements hal.RenderUnit
func (u *Unit) SetStreamFormat(desc hal.StreamDescription) error {
	if err := u.sys.failure(OpSetStreamFormat); err != nil {
		return err
	}

	if desc.FormatID != hal.FormatLinearPCM || desc.ChannelsPerFrame == 0 {
		return errors.Wrapf(hal.ErrNotSupported, "sim: stream format %s", desc)
	}
	switch desc.BitsPerChannel {
	case 8, 16, 24, 32:
	default:
		return errors.Wrapf(hal.ErrNotSupported, "sim: %d bits per channel", desc.BitsPerChannel)
	}
	if desc.BytesPerFrame != desc.ChannelsPerFrame*desc.BitsPerChannel/8 {
		return errors.Wrapf(hal.ErrNotSupported, "sim: %d bytes per frame", desc.BytesPerFrame)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.initialized {
		return errors.New("sim: format change on initialized unit")
	}
	u.desc = desc
	u.haveFormat = true
	return nil
}

// SetRenderCallback implements hal.RenderUnit
func (u *Unit) SetRenderCallback(fn hal.RenderFunc) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fn = fn
	return nil
}

// Initialize implements hal.RenderUnit
func (u *Unit) Initialize() error {
	if err := u.sys.failure(OpInitialize); err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return errors.New("sim: unit disposed")
	}
	if !u.haveFormat {
		return errors.New("sim: no stream format")
	}
	u.initialized = true
	return nil
}

// BufferFrameSizeRange implements hal.RenderUnit
func (u *Unit) BufferFrameSizeRange() (hal.ValueRange, error) {
	if err := u.sys.failure(OpBufferFrameSizeRange); err != nil {
		return hal.ValueRange{}, err
	}
	return u.frameRange, nil
}

// SetBufferFrameSize implements hal.RenderUnit
func (u *Unit) SetBufferFrameSize(frames uint32) error {
	if err := u.sys.failure(OpSetBufferFrameSize); err != nil {
		return err
	}
	if !u.frameRange.Contains(float64(frames)) {
		return errors.Wrapf(hal.ErrNotSupported, "sim: buffer of %d frames", frames)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return errors.New("sim: buffer size change on running unit")
	}
	u.frames = frames
	return nil
}

// Start implements hal.RenderUnit
func (u *Unit) Start() error {
	if err := u.sys.failure(OpStart); err != nil {
		return err
	}

	u.cycleMu.Lock()
	defer u.cycleMu.Unlock()
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return nil
	}
	if !u.initialized || u.fn == nil {
		return errors.New("sim: unit not ready")
	}

	if size := int(u.frames * u.desc.BytesPerFrame); len(u.buf) != size {
		u.buf = make([]byte, size)
	}
	u.gains = make([]float32, u.desc.ChannelsPerFrame)

	u.running = true
	if u.clock != ClockManual {
		u.stop = make(chan struct{})
		u.done = make(chan struct{})
		go u.loop(u.stop, u.done, u.period())
	}
	return nil
}

func (u *Unit) period() time.Duration {
	if u.clock != ClockRealtime || u.desc.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(u.frames) / u.desc.SampleRate * float64(time.Second))
}

func (u *Unit) loop(stop, done chan struct{}, period time.Duration) {
	defer close(done)

	var ticker *time.Ticker
	if period > 0 {
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		status, _ := u.Cycle()

		if ticker != nil {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		} else if status != hal.RenderOK {
			runtime.Gosched()
		}
	}
}

// Cycle invokes the render callback once, as the device would when it
// needs the next buffer. It reports false when the unit is not running.
func (u *Unit) Cycle() (hal.RenderStatus, bool) {
	u.cycleMu.Lock()
	defer u.cycleMu.Unlock()

	u.mu.Lock()
	running, fn, desc := u.running, u.fn, u.desc
	u.mu.Unlock()
	if !running {
		return hal.RenderNoData, false
	}

	for i := range u.buf {
		u.buf[i] = stalePattern
	}

	status := fn(u.buf)

	if status == hal.RenderOK {
		u.sys.volumes.Fill(u.dev, u.gains)
		hal.ApplyGain(u.buf, desc, u.gains)
	}

	u.mu.Lock()
	u.statuses[status]++
	if status == hal.RenderOK {
		u.rendered = append(u.rendered, u.buf...)
	}
	u.mu.Unlock()

	return status, true
}

// Stop implements hal.RenderUnit
func (u *Unit) Stop() error {
	if err := u.sys.failure(OpStop); err != nil {
		return err
	}

	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return nil
	}
	u.running = false
	stop, done := u.stop, u.done
	u.stop, u.done = nil, nil
	u.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	// wait out a callback still running under Cycle
	u.cycleMu.Lock()
	u.cycleMu.Unlock()
	return nil
}

// Uninitialize implements hal.RenderUnit
func (u *Unit) Uninitialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return errors.New("sim: uninitialize on running unit")
	}
	u.initialized = false
	return nil
}

// Dispose implements hal.RenderUnit
func (u *Unit) Dispose() error {
	if err := u.Stop(); err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.initialized = false
	u.disposed = true
	return nil
}

// Format returns the stream format last set
func (u *Unit) Format() hal.StreamDescription {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.desc
}

// BufferFrames returns the callback size in frames
func (u *Unit) BufferFrames() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.frames
}

// BufferSize returns the callback size in bytes
func (u *Unit) BufferSize() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return int(u.frames * u.desc.BytesPerFrame)
}

// Running reports whether the unit is started
func (u *Unit) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

// Initialized reports whether the unit is initialized
func (u *Unit) Initialized() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.initialized
}

// Disposed reports whether Dispose was called
func (u *Unit) Disposed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.disposed
}

// Rendered returns a copy of every buffer that completed with RenderOK
func (u *Unit) Rendered() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.rendered...)
}

// Count returns how many callbacks returned status
func (u *Unit) Count(status hal.RenderStatus) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.statuses[status]
}

// Reset discards recorded output and statuses
func (u *Unit) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rendered = nil
	u.statuses = make(map[hal.RenderStatus]int)
}
