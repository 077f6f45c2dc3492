// ABOUTME: WAV source
// ABOUTME: Decodes RIFF/WAVE PCM files through go-audio/wav
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavChunkFrames = 4096

// WAVSource decodes a PCM WAV file
type WAVSource struct {
	file    *os.File
	decoder *wav.Decoder
	format  audio.Format
	width   int
	title   string

	buf     *goaudio.IntBuffer
	pending []byte
}

// OpenWAV opens a WAV file
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	src, err := newWAV(f, filepath.Base(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

func newWAV(f *os.File, title string) (*WAVSource, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file: %s", title)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find wav data: %w", err)
	}

	channels := int(dec.NumChans)
	bits := int(dec.BitDepth)
	switch bits {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported wav bit depth: %d", bits)
	}
	if channels < 1 {
		return nil, fmt.Errorf("invalid wav channel count: %d", channels)
	}

	format := audio.Format{
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		BitDepth:   bits,
		Signed:     bits > 8,
	}
	return &WAVSource{
		file:    f,
		decoder: dec,
		format:  format,
		width:   bits / 8,
		title:   title,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: channels, SampleRate: format.SampleRate},
			Data:   make([]int, wavChunkFrames*channels),
		},
	}, nil
}

func (s *WAVSource) Read(p []byte) (int, error) {
	frameSize := s.format.FrameSize()
	p = p[:len(p)-len(p)%frameSize]

	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			if err := s.fill(); err != nil {
				if n > 0 {
					return n, nil
				}
				return 0, err
			}
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *WAVSource) fill() error {
	count, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return fmt.Errorf("wav decode error: %w", err)
	}
	// drop a trailing partial frame
	count -= count % s.format.Channels
	if count == 0 {
		return io.EOF
	}

	need := count * s.width
	if cap(s.pending) < need {
		s.pending = make([]byte, need)
	}
	s.pending = s.pending[:need]

	for i := 0; i < count; i++ {
		sample := int32(s.buf.Data[i])
		if s.width == 1 {
			// the decoder hands back 8-bit data unsigned
			sample -= 128
		}
		audio.PutSampleLE(s.pending[i*s.width:], sample, s.width)
	}
	return nil
}

func (s *WAVSource) Format() audio.Format { return s.format }

func (s *WAVSource) Title() string { return s.title }

func (s *WAVSource) Close() error {
	return s.file.Close()
}
