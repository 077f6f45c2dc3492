// ABOUTME: Software gain for rendered PCM buffers
// ABOUTME: Scales little-endian integer and float samples per channel with clipping
package hal

import (
	"encoding/binary"
	"math"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
)

// ApplyGain scales buf in place, channel c by gains[c]. It handles packed
// little-endian unsigned 8-bit, signed 16/24/32-bit and 32-bit float
// streams and reports false for anything else. Unity gain is a no-op.
func ApplyGain(buf []byte, desc StreamDescription, gains []float32) bool {
	if desc.Has(FlagIsBigEndian) || desc.ChannelsPerFrame == 0 {
		return false
	}

	unity := true
	for _, g := range gains {
		if g != 1.0 {
			unity = false
			break
		}
	}

	channels := int(desc.ChannelsPerFrame)
	width := int(desc.BitsPerChannel / 8)
	if width == 0 {
		return false
	}
	float := desc.Has(FlagIsFloat)
	if float && width != 4 {
		return false
	}
	if !float && !desc.Has(FlagIsSignedInteger) && width != 1 {
		return false
	}
	if unity {
		return true
	}

	gainFor := func(i int) float64 {
		c := (i / width) % channels
		if c < len(gains) {
			return float64(gains[c])
		}
		return 1.0
	}

	n := len(buf) - len(buf)%width
	for i := 0; i < n; i += width {
		g := gainFor(i)
		if g == 1.0 {
			continue
		}
		s := buf[i : i+width]
		switch {
		case float:
			v := math.Float32frombits(binary.LittleEndian.Uint32(s))
			binary.LittleEndian.PutUint32(s, math.Float32bits(float32(float64(v)*g)))
		case width == 1:
			v := float64(int(s[0])-128) * g
			s[0] = byte(int(clamp(v, -128, 127)) + 128)
		case width == 2:
			v := float64(int16(binary.LittleEndian.Uint16(s))) * g
			binary.LittleEndian.PutUint16(s, uint16(int16(clamp(v, math.MinInt16, math.MaxInt16))))
		case width == 3:
			v := float64(audio.SampleFrom24Bit([3]byte{s[0], s[1], s[2]})) * g
			b := audio.SampleTo24Bit(int32(clamp(v, audio.Min24Bit, audio.Max24Bit)))
			copy(s, b[:])
		case width == 4:
			v := float64(int32(binary.LittleEndian.Uint32(s))) * g
			binary.LittleEndian.PutUint32(s, uint32(int32(clamp(v, math.MinInt32, math.MaxInt32))))
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
