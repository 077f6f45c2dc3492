// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM sample formats, channel positions and sample packing helpers
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a PCM sample format as produced by a decoder
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Signed     bool
	BigEndian  bool
}

// SampleSize returns the number of bytes used by one sample of one channel
func (f Format) SampleSize() int {
	return f.BitDepth / 8
}

// FrameSize returns the number of bytes used by one sample of every channel
func (f Format) FrameSize() int {
	return f.SampleSize() * f.Channels
}

// BytesPerSecond returns the data rate of the format
func (f Format) BytesPerSecond() int {
	return f.FrameSize() * f.SampleRate
}

func (f Format) String() string {
	sign := "u"
	if f.Signed {
		sign = "s"
	}
	endian := "le"
	if f.BigEndian {
		endian = "be"
	}
	return fmt.Sprintf("%s%d%s %dHz %dch", sign, f.BitDepth, endian, f.SampleRate, f.Channels)
}

// ChannelPosition identifies the speaker a channel is meant for
type ChannelPosition int

const (
	ChannelInvalid ChannelPosition = iota - 1
	ChannelMono
	ChannelFrontLeft
	ChannelFrontRight
	ChannelFrontCenter
	ChannelRearCenter
	ChannelRearLeft
	ChannelRearRight
	ChannelLFE
	ChannelFrontLeftOfCenter
	ChannelFrontRightOfCenter
	ChannelSideLeft
	ChannelSideRight
	ChannelTopCenter
	ChannelTopFrontLeft
	ChannelTopFrontRight
	ChannelTopFrontCenter
	ChannelTopRearLeft
	ChannelTopRearRight
	ChannelTopRearCenter

	ChannelLeft   = ChannelFrontLeft
	ChannelRight  = ChannelFrontRight
	ChannelCenter = ChannelFrontCenter
)

var channelNames = map[ChannelPosition]string{
	ChannelInvalid:            "invalid",
	ChannelMono:               "mono",
	ChannelFrontLeft:          "front-left",
	ChannelFrontRight:         "front-right",
	ChannelFrontCenter:        "front-center",
	ChannelRearCenter:         "rear-center",
	ChannelRearLeft:           "rear-left",
	ChannelRearRight:          "rear-right",
	ChannelLFE:                "lfe",
	ChannelFrontLeftOfCenter:  "front-left-of-center",
	ChannelFrontRightOfCenter: "front-right-of-center",
	ChannelSideLeft:           "side-left",
	ChannelSideRight:          "side-right",
	ChannelTopCenter:          "top-center",
	ChannelTopFrontLeft:       "top-front-left",
	ChannelTopFrontRight:      "top-front-right",
	ChannelTopFrontCenter:     "top-front-center",
	ChannelTopRearLeft:        "top-rear-left",
	ChannelTopRearRight:       "top-rear-right",
	ChannelTopRearCenter:      "top-rear-center",
}

func (p ChannelPosition) String() string {
	if name, ok := channelNames[p]; ok {
		return name
	}
	return fmt.Sprintf("ChannelPosition(%d)", int(p))
}

// waveExOrder is the speaker order used by WAVE_FORMAT_EXTENSIBLE files
var waveExOrder = []ChannelPosition{
	ChannelFrontLeft,
	ChannelFrontRight,
	ChannelFrontCenter,
	ChannelLFE,
	ChannelRearLeft,
	ChannelRearRight,
	ChannelFrontLeftOfCenter,
	ChannelFrontRightOfCenter,
	ChannelRearCenter,
	ChannelSideLeft,
	ChannelSideRight,
}

// DefaultChannelMap returns the conventional channel map for a channel count.
// Mono streams map to a single mono channel; counts beyond the known
// speaker order are filled with ChannelInvalid.
func DefaultChannelMap(channels int) []ChannelPosition {
	if channels <= 0 {
		return nil
	}
	if channels == 1 {
		return []ChannelPosition{ChannelMono}
	}
	m := make([]ChannelPosition, channels)
	for i := range m {
		if i < len(waveExOrder) {
			m[i] = waveExOrder[i]
		} else {
			m[i] = ChannelInvalid
		}
	}
	return m
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}

// PutSampleLE packs a signed sample of the given byte width (1-4) into dst,
// little-endian. 8-bit samples are written unsigned as WAV expects.
func PutSampleLE(dst []byte, sample int32, width int) {
	switch width {
	case 1:
		dst[0] = byte(sample + 128)
	case 2:
		dst[0] = byte(sample)
		dst[1] = byte(sample >> 8)
	case 3:
		b := SampleTo24Bit(sample)
		copy(dst, b[:])
	case 4:
		dst[0] = byte(sample)
		dst[1] = byte(sample >> 8)
		dst[2] = byte(sample >> 16)
		dst[3] = byte(sample >> 24)
	}
}
