// ABOUTME: MP3 source
// ABOUTME: Decodes MP3 files and HTTP streams to 16-bit stereo PCM
package decode

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Source decodes MP3. go-mp3 always yields s16le stereo.
type MP3Source struct {
	body    io.Closer
	decoder *mp3.Decoder
	title   string
}

// OpenMP3 opens an MP3 file
func OpenMP3(path string) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	src, err := NewMP3(f, filepath.Base(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// OpenHTTPMP3 streams MP3 from an HTTP URL
func OpenHTTPMP3(url string) (*MP3Source, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	src, err := NewMP3(resp.Body, url)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return src, nil
}

// NewMP3 decodes MP3 from r. Close closes r.
func NewMP3(r io.ReadCloser, title string) (*MP3Source, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Source{body: r, decoder: decoder, title: title}, nil
}

func (s *MP3Source) Read(p []byte) (int, error) {
	// whole frames only
	p = p[:len(p)-len(p)%4]
	return readFull(s.decoder, p)
}

func (s *MP3Source) Format() audio.Format {
	return audio.Format{SampleRate: s.decoder.SampleRate(), Channels: 2, BitDepth: 16, Signed: true}
}

func (s *MP3Source) Title() string { return s.title }

func (s *MP3Source) Close() error {
	return s.body.Close()
}
