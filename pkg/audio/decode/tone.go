// ABOUTME: Test tone source
// ABOUTME: Generates an endless 16-bit stereo sine wave at half scale
package decode

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
)

const (
	DefaultToneFrequency = 440.0 // A4
	DefaultToneRate      = 44100
)

// ToneSource generates a sine test tone
type ToneSource struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
	rate        int
}

// NewTone creates a tone generator
func NewTone(frequency float64, rate int) *ToneSource {
	return &ToneSource{frequency: frequency, rate: rate}
}

func (s *ToneSource) Read(p []byte) (int, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	frames := len(p) / 4

	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.rate)
		sample := math.Sin(2 * math.Pi * s.frequency * t)

		// 50% volume
		v := uint16(int16(sample * 32767.0 * 0.5))

		binary.LittleEndian.PutUint16(p[i*4:], v)
		binary.LittleEndian.PutUint16(p[i*4+2:], v)
	}

	s.sampleIndex += uint64(frames)

	return frames * 4, nil
}

func (s *ToneSource) Format() audio.Format {
	return audio.Format{SampleRate: s.rate, Channels: 2, BitDepth: 16, Signed: true}
}

func (s *ToneSource) Title() string {
	return fmt.Sprintf("Test Tone (%.0f Hz)", s.frequency)
}

func (s *ToneSource) Close() error { return nil }
