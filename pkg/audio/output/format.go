// ABOUTME: Conversion from the generic sample format to a platform stream description
// ABOUTME: Always packed linear PCM with one frame per packet
package output

import (
	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
)

// BuildFormat describes f as packed linear PCM. Bit depth is passed through
// as-is; the render unit decides whether it can play it.
func BuildFormat(f audio.Format) hal.StreamDescription {
	flags := hal.FlagIsPacked
	if f.BigEndian {
		flags |= hal.FlagIsBigEndian
	}
	if f.Signed {
		flags |= hal.FlagIsSignedInteger
	}

	frameSize := uint32(f.FrameSize())

	return hal.StreamDescription{
		SampleRate:       float64(f.SampleRate),
		FormatID:         hal.FormatLinearPCM,
		Flags:            flags,
		BytesPerPacket:   frameSize,
		FramesPerPacket:  1,
		BytesPerFrame:    frameSize,
		ChannelsPerFrame: uint32(f.Channels),
		BitsPerChannel:   uint32(f.BitDepth),
	}
}
