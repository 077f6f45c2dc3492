// ABOUTME: Raw PCM source
// ABOUTME: Reads headerless interleaved PCM in a caller-supplied format
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
)

// PCMSource passes raw PCM through unchanged
type PCMSource struct {
	r      io.ReadCloser
	format audio.Format
	title  string
}

// OpenRaw opens a headerless PCM file whose layout is described by format
func OpenRaw(path string, format audio.Format) (*PCMSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	src, err := NewPCM(f, format, filepath.Base(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// NewPCM wraps r as a PCM source
func NewPCM(r io.ReadCloser, format audio.Format, title string) (*PCMSource, error) {
	switch format.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", format.BitDepth)
	}
	if format.Channels < 1 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid pcm format: %s", format)
	}

	return &PCMSource{r: r, format: format, title: title}, nil
}

func (s *PCMSource) Read(p []byte) (int, error) {
	frameSize := s.format.FrameSize()
	p = p[:len(p)-len(p)%frameSize]
	n, err := readFull(s.r, p)
	// a truncated final frame is discarded
	n -= n % frameSize
	if n == 0 && err == nil && len(p) > 0 {
		err = io.EOF
	}
	return n, err
}

func (s *PCMSource) Format() audio.Format { return s.format }

func (s *PCMSource) Title() string { return s.title }

func (s *PCMSource) Close() error {
	return s.r.Close()
}
