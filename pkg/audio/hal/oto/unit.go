// ABOUTME: oto player wrapped as a render unit
// ABOUTME: The player pulls from a reader that runs the render function one period at a time
package oto

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"
)

const (
	minFrames     = 256
	maxFrames     = 8192
	defaultFrames = 2048
)

type unit struct {
	sys *System

	mu          sync.Mutex
	desc        hal.StreamDescription
	format      oto.Format
	fn          hal.RenderFunc
	frames      uint32
	initialized bool
	player      *oto.Player

	// held while the render function runs
	callMu sync.Mutex
	gains  []float32
}

// otoFormat maps a stream description to an oto source format. oto plays
// mono or stereo only.
func otoFormat(desc hal.StreamDescription) (oto.Format, error) {
	if desc.FormatID != hal.FormatLinearPCM || desc.Has(hal.FlagIsBigEndian) ||
		desc.ChannelsPerFrame == 0 || desc.ChannelsPerFrame > 2 {
		return 0, errors.Wrapf(hal.ErrNotSupported, "oto: %s", desc)
	}

	signed := desc.Has(hal.FlagIsSignedInteger)
	switch {
	case desc.Has(hal.FlagIsFloat) && desc.BitsPerChannel == 32:
		return oto.FormatFloat32LE, nil
	case desc.BitsPerChannel == 8 && !signed:
		return oto.FormatUnsignedInt8, nil
	case desc.BitsPerChannel == 16 && signed:
		return oto.FormatSignedInt16LE, nil
	}
	return 0, errors.Wrapf(hal.ErrNotSupported, "oto: %s", desc)
}

func (u *unit) SetStreamFormat(desc hal.StreamDescription) error {
	format, err := otoFormat(desc)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.initialized {
		return errors.New("oto: format change on initialized unit")
	}
	u.desc = desc
	u.format = format
	return nil
}

func (u *unit) SetRenderCallback(fn hal.RenderFunc) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fn = fn
	return nil
}

func (u *unit) Initialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.desc.BytesPerFrame == 0 || u.fn == nil {
		return errors.New("oto: unit needs a format and a render callback")
	}
	u.initialized = true
	return nil
}

func (u *unit) BufferFrameSizeRange() (hal.ValueRange, error) {
	return hal.ValueRange{Min: minFrames, Max: maxFrames}, nil
}

func (u *unit) SetBufferFrameSize(frames uint32) error {
	if frames < minFrames || frames > maxFrames {
		return errors.Wrapf(hal.ErrNotSupported, "oto: buffer of %d frames", frames)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.frames = frames
	if u.player != nil {
		u.player.SetBufferSize(int(frames * u.desc.BytesPerFrame))
	}
	return nil
}

func (u *unit) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.initialized {
		return errors.New("oto: unit not initialized")
	}

	if u.player == nil {
		period := time.Duration(float64(u.frames) / u.desc.SampleRate * float64(time.Second))
		ctx, err := sharedContext(oto.NewContextOptions{
			SampleRate:   int(u.desc.SampleRate),
			ChannelCount: int(u.desc.ChannelsPerFrame),
			Format:       u.format,
			BufferSize:   period,
		})
		if err != nil {
			return err
		}
		if err := ctx.Resume(); err != nil {
			return errors.Wrap(err, "oto: resume context")
		}

		u.gains = make([]float32, u.desc.ChannelsPerFrame)
		u.player = ctx.NewPlayer(&renderReader{u: u, chunk: int(u.frames * u.desc.BytesPerFrame), frame: int(u.desc.BytesPerFrame)})
		u.player.SetBufferSize(int(u.frames * u.desc.BytesPerFrame))

		u.sys.log.Info("player created", "format", u.desc.String(), "buffer_frames", u.frames)
	}

	u.player.Play()
	return nil
}

// Stop pauses the player, then waits out a read already in progress
func (u *unit) Stop() error {
	u.mu.Lock()
	player := u.player
	u.mu.Unlock()

	if player == nil {
		return nil
	}
	player.Pause()

	u.callMu.Lock()
	u.callMu.Unlock()
	return errors.Wrap(player.Err(), "oto: player")
}

func (u *unit) Uninitialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.player != nil {
		u.player.Pause()
		u.player = nil
	}
	u.initialized = false
	return nil
}

func (u *unit) Dispose() error {
	return u.Uninitialize()
}

// renderReader is the io.Reader oto pulls from
type renderReader struct {
	u     *unit
	chunk int
	frame int
}

// Read always fills whole frames; a cycle without data plays silence
func (r *renderReader) Read(p []byte) (int, error) {
	n := len(p)
	if n > r.chunk {
		n = r.chunk
	}
	n -= n % r.frame
	if n == 0 {
		clear(p)
		return len(p), nil
	}
	buf := p[:n]

	u := r.u
	u.callMu.Lock()
	defer u.callMu.Unlock()

	if u.fn(buf) != hal.RenderOK {
		clear(buf)
		return n, nil
	}
	u.sys.volumes.Fill(1, u.gains)
	hal.ApplyGain(buf, u.desc, u.gains)
	return n, nil
}
