// ABOUTME: Device discovery and best-effort device configuration before streaming
// ABOUTME: Nominal rate sync, channel layout and exclusive (hog) access
package output

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
)

// maxRateFactor bounds the integer divisors tried when matching a stream
// rate to a device rate
const maxRateFactor = 4

// Negotiator configures an output device. Only FindDevice can fail; the
// rest log and carry on.
type Negotiator struct {
	sys hal.System
	log *slog.Logger
	pid int
}

// NewNegotiator creates a negotiator acting for the current process
func NewNegotiator(sys hal.System, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		sys: sys,
		log: logger,
		pid: os.Getpid(),
	}
}

// FindDevice returns the output device called name, or the default output
// device when name is empty or matches nothing. named reports whether the
// device was found by name.
func (n *Negotiator) FindDevice(name string) (dev hal.DeviceID, named bool, err error) {
	def, err := n.sys.DefaultOutputDevice()
	if err != nil {
		return hal.UnknownDevice, false, fmt.Errorf("%w: default output device: %w", ErrNoDevice, err)
	}
	if def == hal.UnknownDevice {
		return hal.UnknownDevice, false, fmt.Errorf("%w: no default output device", ErrNoDevice)
	}

	if name == "" {
		return def, false, nil
	}

	ids, err := n.sys.OutputDevices()
	if err != nil {
		n.log.Warn("cannot list output devices", "error", err)
		return def, false, nil
	}

	for _, id := range ids {
		devName, err := n.sys.DeviceName(id)
		if err != nil {
			n.log.Debug("cannot read device name", "device", id, "error", err)
			continue
		}
		if devName == name {
			return id, true, nil
		}
	}

	n.log.Warn("device not found, using default output", "device", name)
	return def, false, nil
}

// PickSampleRate chooses the device rate for a stream at rate: rate divided
// by the smallest factor up to 4 that some range contains, else the highest
// rate any range allows. ok is false when there are no ranges.
func PickSampleRate(rate float64, ranges []hal.ValueRange) (picked float64, ok bool) {
	if len(ranges) == 0 {
		return 0, false
	}

	for f := 1; f <= maxRateFactor; f++ {
		want := rate / float64(f)
		for _, r := range ranges {
			if r.Contains(want) {
				return want, true
			}
		}
	}

	for _, r := range ranges {
		if r.Max > picked {
			picked = r.Max
		}
	}
	return picked, true
}

// SyncSampleRate sets the device nominal rate to suit desc
func (n *Negotiator) SyncSampleRate(dev hal.DeviceID, desc hal.StreamDescription) {
	ranges, err := n.sys.NominalSampleRates(dev)
	if err != nil {
		n.log.Warn("cannot read nominal sample rates", "device", dev, "error", err)
		return
	}

	rate, ok := PickSampleRate(desc.SampleRate, ranges)
	if !ok {
		n.log.Warn("device reports no nominal sample rates", "device", dev)
		return
	}

	if err := n.sys.SetNominalSampleRate(dev, rate); err != nil {
		n.log.Warn("cannot set nominal sample rate", "device", dev, "rate", rate, "error", err)
		return
	}
	n.log.Info("synced nominal sample rate", "device", dev, "stream_rate", desc.SampleRate, "device_rate", rate)
}

var positionLabels = map[audio.ChannelPosition]hal.ChannelLabel{
	audio.ChannelInvalid:            hal.LabelUnknown,
	audio.ChannelMono:               hal.LabelMono,
	audio.ChannelFrontLeft:          hal.LabelLeft,
	audio.ChannelFrontRight:         hal.LabelRight,
	audio.ChannelFrontCenter:        hal.LabelCenter,
	audio.ChannelLFE:                hal.LabelLFEScreen,
	audio.ChannelSideLeft:           hal.LabelLeftSurround,
	audio.ChannelSideRight:          hal.LabelRightSurround,
	audio.ChannelFrontLeftOfCenter:  hal.LabelLeftCenter,
	audio.ChannelFrontRightOfCenter: hal.LabelRightCenter,
	audio.ChannelRearLeft:           hal.LabelLeftSurroundDirect,
	audio.ChannelRearRight:          hal.LabelRightSurroundDirect,
	audio.ChannelRearCenter:         hal.LabelCenterSurround,
}

// ChannelLabel maps a channel position to a device speaker label. Positions
// without a speaker of their own play as mono.
func ChannelLabel(pos audio.ChannelPosition) hal.ChannelLabel {
	if l, ok := positionLabels[pos]; ok {
		return l
	}
	return hal.LabelMono
}

// BuildChannelLayout describes channels by label. The label of position i
// lands in description channels-1-i while its flags and coordinates are
// written at i; device channel order is the reverse of stream order.
// Channels past the end of positions are labelled Unknown.
func BuildChannelLayout(channels int, positions []audio.ChannelPosition) hal.ChannelLayout {
	if channels < 0 {
		channels = 0
	}

	desc := make([]hal.ChannelDescription, channels)
	for i := 0; i < channels; i++ {
		pos := audio.ChannelInvalid
		if i < len(positions) {
			pos = positions[i]
		}

		desc[channels-1-i].Label = ChannelLabel(pos)
		desc[i].Flags = hal.ChannelFlagsAllOff
		desc[i].Coordinates = [3]float32{}
	}

	return hal.ChannelLayout{
		Tag:          hal.LayoutTagUseChannelDescriptions,
		Descriptions: desc,
	}
}

// ApplyChannelLayout sets the device's preferred layout for a stream
func (n *Negotiator) ApplyChannelLayout(dev hal.DeviceID, channels int, positions []audio.ChannelPosition) {
	layout := BuildChannelLayout(channels, positions)
	if err := n.sys.SetPreferredChannelLayout(dev, layout); err != nil {
		n.log.Warn("cannot set channel layout", "device", dev, "channels", channels, "error", err)
		return
	}
	n.log.Debug("set channel layout", "device", dev, "channels", channels)
}

// Hog takes or releases exclusive access to dev. Taking a device somebody
// owns, or releasing one this process does not own, does nothing.
func (n *Negotiator) Hog(dev hal.DeviceID, enable bool) {
	owner, err := n.sys.HogOwner(dev)
	if err != nil {
		n.log.Warn("cannot read hog owner", "device", dev, "error", err)
		return
	}

	if enable && owner != hal.NoHogOwner {
		n.log.Info("device is already hogged", "device", dev, "owner", owner)
		return
	}
	if !enable && owner != n.pid {
		n.log.Debug("device is not hogged by this process", "device", dev, "owner", owner)
		return
	}

	pid := hal.NoHogOwner
	if enable {
		pid = n.pid
	}
	if err := n.sys.SetHogOwner(dev, pid); err != nil {
		n.log.Warn("cannot change hog mode", "device", dev, "enable", enable, "error", err)
		return
	}
	n.log.Info("changed hog mode", "device", dev, "enable", enable)
}

// Hogged reports whether this process owns dev
func (n *Negotiator) Hogged(dev hal.DeviceID) bool {
	owner, err := n.sys.HogOwner(dev)
	return err == nil && owner == n.pid
}
