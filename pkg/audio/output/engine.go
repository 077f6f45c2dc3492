// ABOUTME: Stream engine owning the output device, render unit and handoff
// ABOUTME: Implements the transport and data path of the output backend
package output

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	"github.com/google/uuid"
)

// Options configure device selection and negotiation
type Options struct {
	// Device is the exact name of the output device; empty selects the
	// default output
	Device string

	// HogMode requests exclusive access to a device selected by name
	HogMode bool

	// SyncSampleRate changes the device nominal rate to suit each stream
	SyncSampleRate bool
}

// Device is the output device chosen by Init
type Device struct {
	ID    hal.DeviceID
	Name  string
	Named bool
}

// Engine streams PCM to one output device of a hal.System
type Engine struct {
	sys hal.System
	neg *Negotiator
	id  uuid.UUID
	log *slog.Logger

	mu     sync.Mutex
	opts   Options
	dev    Device
	unit   hal.RenderUnit
	format audio.Format
	desc   hal.StreamDescription

	handoff atomic.Pointer[Handoff]
}

// NewEngine creates an engine on sys. Nothing is touched until Init.
func NewEngine(sys hal.System, opts Options) *Engine {
	id := uuid.New()
	logger := slog.Default().With("component", "output", "engine", id.String(), "backend", sys.Name())

	return &Engine{
		sys:  sys,
		neg:  NewNegotiator(sys, logger),
		id:   id,
		log:  logger,
		opts: opts,
	}
}

// ID returns the engine instance id used in its log lines
func (e *Engine) ID() uuid.UUID { return e.id }

// Negotiator returns the negotiator the engine configures its device with
func (e *Engine) Negotiator() *Negotiator { return e.neg }

// Init selects the output device and creates its render unit
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, named, err := e.neg.FindDevice(e.opts.Device)
	if err != nil {
		return err
	}

	dev := Device{ID: id, Named: named}
	if name, err := e.sys.DeviceName(id); err == nil {
		dev.Name = name
	}

	if named && e.opts.HogMode {
		e.neg.Hog(id, true)
	}

	subtype := hal.DefaultOutput
	if named {
		subtype = hal.HALOutput
	}

	unit, err := e.sys.NewRenderUnit(subtype, id)
	if err != nil {
		return fmt.Errorf("%w: create %s unit: %w", ErrNoDevice, subtype, err)
	}

	e.dev = dev
	e.unit = unit
	e.log.Info("output device selected", "device", dev.Name, "id", dev.ID, "named", named, "unit", subtype)
	return nil
}

// Exit releases the render unit, hog mode and the platform system
func (e *Engine) Exit() error {
	if e.handoff.Load() != nil {
		if err := e.Close(); err != nil {
			e.log.Warn("close on exit failed", "error", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unit != nil {
		if err := e.unit.Dispose(); err != nil {
			e.log.Warn("cannot dispose render unit", "error", err)
		}
		e.unit = nil
	}
	if e.dev.ID != hal.UnknownDevice {
		e.neg.Hog(e.dev.ID, false)
	}
	if err := e.sys.Unload(); err != nil {
		e.log.Warn("cannot unload audio system", "error", err)
	}

	e.log.Info("output released")
	return nil
}

// Open negotiates format and starts streaming. channelMap may be nil, in
// which case the device layout is left alone.
func (e *Engine) Open(format audio.Format, channelMap []audio.ChannelPosition) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unit == nil {
		return fmt.Errorf("%w: not initialized", ErrNoDevice)
	}

	desc := BuildFormat(format)

	if e.opts.SyncSampleRate {
		e.neg.SyncSampleRate(e.dev.ID, desc)
	}
	if channelMap != nil {
		e.neg.ApplyChannelLayout(e.dev.ID, format.Channels, channelMap)
	}

	h := NewHandoff()

	if err := e.unit.SetStreamFormat(desc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsupportedFormat, desc, err)
	}
	if err := e.unit.SetRenderCallback(h.Render); err != nil {
		return fmt.Errorf("%w: install render callback: %w", ErrUnsupportedFormat, err)
	}
	if err := e.unit.Initialize(); err != nil {
		return fmt.Errorf("%w: initialize unit: %w", ErrUnsupportedFormat, err)
	}

	frames, err := e.unit.BufferFrameSizeRange()
	if err != nil {
		e.uninitialize()
		return fmt.Errorf("%w: buffer frame size range: %w", ErrUnsupportedFormat, err)
	}
	if err := e.unit.SetBufferFrameSize(uint32(frames.Max)); err != nil {
		e.log.Warn("cannot set buffer frame size", "frames", uint32(frames.Max), "error", err)
	}

	if err := e.unit.Start(); err != nil {
		e.uninitialize()
		return fmt.Errorf("%w: start unit: %w", ErrUnsupportedFormat, err)
	}

	e.format = format
	e.desc = desc
	e.handoff.Store(h)

	e.log.Info("stream opened", "format", format.String(), "buffer_frames", uint32(frames.Max))
	return nil
}

func (e *Engine) uninitialize() {
	if err := e.unit.Uninitialize(); err != nil {
		e.log.Warn("cannot uninitialize render unit", "error", err)
	}
}

// Close silences the outstanding slot, stops the unit and retires the
// handoff
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.handoff.Load()
	if h == nil {
		return nil
	}

	h.Close()

	var stopErr error
	if err := e.unit.Stop(); err != nil {
		stopErr = fmt.Errorf("%w: stop unit: %w", ErrNoDevice, err)
		e.log.Warn("cannot stop render unit", "error", err)
	}
	e.uninitialize()

	e.handoff.Store(nil)
	e.log.Info("stream closed", "stats", h.Stats())
	return stopErr
}

// Write hands p to the render callback and returns the bytes accepted.
// Callers write no more than the last BufferSpace result.
func (e *Engine) Write(p []byte) int {
	h := e.handoff.Load()
	if h == nil {
		return 0
	}
	return h.Write(p)
}

// BufferSpace blocks until the callback asks for data or streaming stops,
// and returns the bytes Write will accept
func (e *Engine) BufferSpace() int {
	h := e.handoff.Load()
	if h == nil {
		return 0
	}
	return h.Space()
}

// BufferSpaceDelay is always zero; BufferSpace blocks instead
func (e *Engine) BufferSpaceDelay() time.Duration {
	return 0
}

// Pause silences the outstanding slot and stops the unit
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.handoff.Load()
	if h == nil {
		return nil
	}

	h.Pause()
	if err := e.unit.Stop(); err != nil {
		return fmt.Errorf("%w: stop unit: %w", ErrNoDevice, err)
	}
	e.log.Debug("paused")
	return nil
}

// Unpause restarts the unit after Pause
func (e *Engine) Unpause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.handoff.Load()
	if h == nil {
		return nil
	}

	h.Resume()
	if err := e.unit.Start(); err != nil {
		return fmt.Errorf("%w: start unit: %w", ErrNoDevice, err)
	}
	e.log.Debug("unpaused")
	return nil
}

// Drop discards the outstanding slot; streaming continues with the next
// cycle
func (e *Engine) Drop() error {
	if h := e.handoff.Load(); h != nil {
		h.Drop()
	}
	return nil
}

// Stats returns the cycle counters of the open stream
func (e *Engine) Stats() HandoffStats {
	if h := e.handoff.Load(); h != nil {
		return h.Stats()
	}
	return HandoffStats{}
}

// Device returns the device selected by Init
func (e *Engine) Device() Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dev
}

// Format returns the format of the open stream
func (e *Engine) Format() audio.Format {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.format
}

// IsOpen reports whether a stream is open
func (e *Engine) IsOpen() bool {
	return e.handoff.Load() != nil
}

// System returns the platform system the engine plays on
func (e *Engine) System() hal.System { return e.sys }
