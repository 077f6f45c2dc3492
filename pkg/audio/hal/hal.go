// ABOUTME: Core platform types and interfaces
// ABOUTME: Device identifiers, stream descriptions, render units and listeners
package hal

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDevice is returned for a DeviceID the system does not know
	ErrUnknownDevice = errors.New("unknown device")

	// ErrNotSupported is returned when a backend cannot honour a request
	ErrNotSupported = errors.New("not supported")
)

// DeviceID identifies an output device within one System
type DeviceID uint32

// UnknownDevice is the zero DeviceID; no real device uses it
const UnknownDevice DeviceID = 0

// NoHogOwner is the hog owner value of a device nobody owns
const NoHogOwner = -1

// ValueRange is an inclusive range, used for sample rates and buffer sizes
type ValueRange struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the range
func (r ValueRange) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

func (r ValueRange) String() string {
	if r.Min == r.Max {
		return fmt.Sprintf("%g", r.Min)
	}
	return fmt.Sprintf("%g-%g", r.Min, r.Max)
}

// FormatID names the encoding of a stream
type FormatID uint32

const (
	FormatLinearPCM FormatID = iota + 1
)

// FormatFlags qualify a linear PCM stream
type FormatFlags uint32

const (
	FlagIsFloat FormatFlags = 1 << iota
	FlagIsBigEndian
	FlagIsSignedInteger
	FlagIsPacked
)

// StreamDescription is the platform description of a PCM stream
type StreamDescription struct {
	SampleRate       float64
	FormatID         FormatID
	Flags            FormatFlags
	BytesPerPacket   uint32
	FramesPerPacket  uint32
	BytesPerFrame    uint32
	ChannelsPerFrame uint32
	BitsPerChannel   uint32
}

// Has reports whether all flags in f are set
func (d StreamDescription) Has(f FormatFlags) bool {
	return d.Flags&f == f
}

func (d StreamDescription) String() string {
	kind := "u"
	switch {
	case d.Has(FlagIsFloat):
		kind = "f"
	case d.Has(FlagIsSignedInteger):
		kind = "s"
	}
	endian := "le"
	if d.Has(FlagIsBigEndian) {
		endian = "be"
	}
	return fmt.Sprintf("%s%d%s %gHz %dch", kind, d.BitsPerChannel, endian, d.SampleRate, d.ChannelsPerFrame)
}

// ChannelDescription describes one channel of a layout
type ChannelDescription struct {
	Label       ChannelLabel
	Flags       ChannelFlags
	Coordinates [3]float32
}

// ChannelLayoutTag selects how a layout is expressed
type ChannelLayoutTag uint32

const (
	LayoutTagUseChannelDescriptions ChannelLayoutTag = 0
)

// ChannelLayout assigns speaker labels to stream channels
type ChannelLayout struct {
	Tag          ChannelLayoutTag
	Bitmap       uint32
	Descriptions []ChannelDescription
}

// RenderStatus is returned by a RenderFunc for each cycle
type RenderStatus int

const (
	// RenderOK means the buffer was filled and should be played
	RenderOK RenderStatus = iota
	// RenderNoData means nothing was produced this cycle (underrun/stopping)
	RenderNoData
	// RenderNoConnection means the cycle was discarded on purpose
	RenderNoConnection
)

func (s RenderStatus) String() string {
	switch s {
	case RenderOK:
		return "ok"
	case RenderNoData:
		return "no-data"
	case RenderNoConnection:
		return "no-connection"
	default:
		return fmt.Sprintf("RenderStatus(%d)", int(s))
	}
}

// RenderFunc fills buf with interleaved PCM in the unit's stream format.
// It runs on the platform's real-time thread. Units play silence for any
// status other than RenderOK.
type RenderFunc func(buf []byte) RenderStatus

// UnitSubtype selects which output unit to instantiate
type UnitSubtype int

const (
	// DefaultOutput follows the system default output device
	DefaultOutput UnitSubtype = iota
	// HALOutput is bound to one specific device
	HALOutput
)

func (s UnitSubtype) String() string {
	if s == HALOutput {
		return "hal-output"
	}
	return "default-output"
}

// PropertyListener is notified when a device property changes. Calls arrive
// asynchronously on a goroutine owned by the System; implementations must
// not block.
type PropertyListener interface {
	PropertyChanged(dev DeviceID, element uint32)
}

// System is the platform audio object model
type System interface {
	// Name returns the backend name the system was opened with
	Name() string

	// DefaultOutputDevice returns the current default output device
	DefaultOutputDevice() (DeviceID, error)

	// OutputDevices lists every output device
	OutputDevices() ([]DeviceID, error)

	// DeviceName returns the human-readable name of a device
	DeviceName(dev DeviceID) (string, error)

	// NominalSampleRates returns the device's supported nominal rate ranges
	NominalSampleRates(dev DeviceID) ([]ValueRange, error)

	// SetNominalSampleRate changes the rate the device runs at
	SetNominalSampleRate(dev DeviceID, rate float64) error

	// SetPreferredChannelLayout sets the device's preferred channel layout
	SetPreferredChannelLayout(dev DeviceID, layout ChannelLayout) error

	// HogOwner returns the pid holding exclusive access, or NoHogOwner
	HogOwner(dev DeviceID) (int, error)

	// SetHogOwner takes (pid) or releases (NoHogOwner) exclusive access
	SetHogOwner(dev DeviceID, pid int) error

	// PreferredStereoChannels returns the device channel elements used for stereo
	PreferredStereoChannels(dev DeviceID) ([2]uint32, error)

	// VolumeScalar returns the 0..1 volume of one channel element
	VolumeScalar(dev DeviceID, element uint32) (float32, error)

	// SetVolumeScalar sets the 0..1 volume of one channel element
	SetVolumeScalar(dev DeviceID, element uint32, v float32) error

	// AddVolumeListener registers l for volume changes on one element
	AddVolumeListener(dev DeviceID, element uint32, l PropertyListener) error

	// RemoveVolumeListener removes a listener added with AddVolumeListener
	RemoveVolumeListener(dev DeviceID, element uint32, l PropertyListener) error

	// NewRenderUnit instantiates an output unit for dev
	NewRenderUnit(subtype UnitSubtype, dev DeviceID) (RenderUnit, error)

	// Unload releases platform resources held by the system
	Unload() error
}

// RenderUnit pulls audio from a RenderFunc and plays it on a device
type RenderUnit interface {
	// SetStreamFormat sets the format the render callback produces
	SetStreamFormat(desc StreamDescription) error

	// SetRenderCallback installs the real-time callback
	SetRenderCallback(fn RenderFunc) error

	// Initialize prepares the unit for starting
	Initialize() error

	// BufferFrameSizeRange returns the supported callback sizes in frames
	BufferFrameSizeRange() (ValueRange, error)

	// SetBufferFrameSize sets the callback size in frames
	SetBufferFrameSize(frames uint32) error

	// Start begins invoking the render callback
	Start() error

	// Stop halts the unit; it returns after any in-flight callback has returned
	Stop() error

	// Uninitialize undoes Initialize
	Uninitialize() error

	// Dispose releases the unit
	Dispose() error
}
