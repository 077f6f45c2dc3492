// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, ChannelPosition and sample packing functions
// Package audio provides fundamental PCM types shared by decoders and outputs.
//
// This package defines core types used throughout resonate-out:
//   - Format: Describes a PCM sample format (rate, channels, bit depth, sign, endianness)
//   - ChannelPosition: Speaker position of a channel, used to build channel layouts
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 44100,
//	    Channels:   2,
//	    BitDepth:   16,
//	    Signed:     true,
//	}
//
//	frame := format.FrameSize() // 4 bytes
//	layout := audio.DefaultChannelMap(format.Channels)
package audio
