// ABOUTME: FLAC source
// ABOUTME: Decodes FLAC frames and interleaves subframes at the stream's native bit depth
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACSource decodes a FLAC file
type FLACSource struct {
	file   *os.File
	stream *flac.Stream
	format audio.Format
	width  int
	shift  uint
	title  string

	pending []byte
}

// OpenFLAC opens a FLAC file
func OpenFLAC(path string) (*FLACSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}

	bits := int(stream.Info.BitsPerSample)
	if bits < 4 || bits > 32 {
		stream.Close()
		f.Close()
		return nil, fmt.Errorf("unsupported flac bit depth: %d", bits)
	}

	// odd depths are padded up to whole bytes
	width := (bits + 7) / 8
	return &FLACSource{
		file:   f,
		stream: stream,
		format: audio.Format{
			SampleRate: int(stream.Info.SampleRate),
			Channels:   int(stream.Info.NChannels),
			BitDepth:   width * 8,
			Signed:     width > 1,
		},
		width: width,
		shift: uint(width*8 - bits),
		title: filepath.Base(path),
	}, nil
}

func (s *FLACSource) Read(p []byte) (int, error) {
	frameSize := s.format.FrameSize()
	p = p[:len(p)-len(p)%frameSize]

	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			if err := s.decodeFrame(); err != nil {
				if err == io.EOF && n > 0 {
					return n, nil
				}
				return n, err
			}
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *FLACSource) decodeFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("flac decode error: %w", err)
	}

	channels := s.format.Channels
	blockSize := int(frame.BlockSize)
	need := blockSize * channels * s.width
	if cap(s.pending) < need {
		s.pending = make([]byte, need)
	}
	s.pending = s.pending[:need]

	off := 0
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			sample := frame.Subframes[ch].Samples[i] << s.shift
			audio.PutSampleLE(s.pending[off:], sample, s.width)
			off += s.width
		}
	}
	return nil
}

func (s *FLACSource) Format() audio.Format { return s.format }

func (s *FLACSource) Title() string { return s.title }

func (s *FLACSource) Close() error {
	s.stream.Close()
	return s.file.Close()
}
