// ABOUTME: Source interface and constructor dispatch
// ABOUTME: Picks a decoder from a path extension or URL scheme
package decode

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
)

// Source produces interleaved PCM in the format it reports
type Source interface {
	io.Reader
	Format() audio.Format
	Title() string
	Close() error
}

// Open picks a source for path. An empty path yields the test tone,
// http(s) URLs are streamed as MP3, and files are chosen by extension.
func Open(path string) (Source, error) {
	if path == "" {
		return NewTone(DefaultToneFrequency, DefaultToneRate), nil
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return OpenHTTPMP3(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return OpenMP3(path)
	case ".flac":
		return OpenFLAC(path)
	case ".wav", ".wave":
		return OpenWAV(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .mp3, .flac, .wav)", filepath.Ext(path))
	}
}

// readFull fills p from r, treating a short final read as success
func readFull(r io.Reader, p []byte) (int, error) {
	n, err := io.ReadFull(r, p)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return n, err
}
