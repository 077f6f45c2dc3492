// ABOUTME: Producer loop feeding a PCM source into an output engine
// ABOUTME: Handles transport and volume commands between render cycles
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/output"
)

// Output is the part of the engine the producer drives
type Output interface {
	Write(p []byte) int
	BufferSpace() int
	Pause() error
	Unpause() error
	Drop() error
	Stats() output.HandoffStats
}

// Mixer is the volume control the player adjusts and watches
type Mixer interface {
	Fds() []int
	Changed() <-chan struct{}
	SetVolume(l, r int) error
	GetVolume() (l, r int, err error)
}

// State of playback
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateFinished
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "stopped"
	}
}

// Command is a request handled by the producer goroutine
type Command int

const (
	CmdPause Command = iota
	CmdUnpause
	CmdTogglePause
	CmdDrop
	CmdVolumeUp
	CmdVolumeDown
	CmdQuit
)

const (
	// DefaultVolumeStep is the volume change per up/down command
	DefaultVolumeStep = 5

	retryDelay   = 10 * time.Millisecond
	defaultChunk = 16384
)

// Status is a snapshot of the player
type Status struct {
	State   State
	Volume  int // -1 without a mixer
	Written uint64
	Stats   output.HandoffStats
}

// Config configures a Player
type Config struct {
	Output Output
	Mixer  Mixer // optional
	Source decode.Source

	VolumeStep int

	// OnStatus is called from the player goroutines after every change
	OnStatus func(Status)
}

// Player runs the single producer goroutine of an output engine
type Player struct {
	out      Output
	mixer    Mixer
	src      decode.Source
	step     int
	onStatus func(Status)
	log      *slog.Logger

	cmds chan Command

	mu     sync.Mutex
	status Status

	// owned by Run
	buf     []byte
	pending []byte
}

// New creates a player. Nothing runs until Run.
func New(cfg Config) (*Player, error) {
	if cfg.Output == nil {
		return nil, errors.New("player: output is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("player: source is required")
	}

	step := cfg.VolumeStep
	if step <= 0 {
		step = DefaultVolumeStep
	}

	p := &Player{
		out:      cfg.Output,
		mixer:    cfg.Mixer,
		src:      cfg.Source,
		step:     step,
		onStatus: cfg.OnStatus,
		log:      slog.Default().With("component", "player", "source", cfg.Source.Title()),
		cmds:     make(chan Command, 16),
		status:   Status{Volume: -1},
	}

	// whole frames per chunk
	frame := cfg.Source.Format().FrameSize()
	if frame <= 0 {
		return nil, fmt.Errorf("player: invalid source format %s", cfg.Source.Format())
	}
	p.buf = make([]byte, defaultChunk-defaultChunk%frame)

	if p.mixer != nil {
		if l, r, err := p.mixer.GetVolume(); err == nil {
			p.status.Volume = (l + r) / 2
		} else {
			p.log.Warn("failed to read volume", "error", err)
		}
	}
	return p, nil
}

// Send queues a command for the producer goroutine. It never blocks; a
// command is dropped when the queue is full.
func (p *Player) Send(cmd Command) bool {
	select {
	case p.cmds <- cmd:
		return true
	default:
		p.log.Warn("command queue full", "command", cmd)
		return false
	}
}

// Status returns the current snapshot
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.status
	s.Stats = p.out.Stats()
	return s
}

func (p *Player) update(fn func(*Status)) {
	p.mu.Lock()
	fn(&p.status)
	s := p.status
	p.mu.Unlock()

	if p.onStatus != nil {
		s.Stats = p.out.Stats()
		p.onStatus(s)
	}
}

func (p *Player) state() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.State
}

// Run feeds the source into the output until the source ends, a quit
// command arrives or ctx is done. It must be the only goroutine that
// writes to the output.
func (p *Player) Run(ctx context.Context) error {
	p.update(func(s *Status) { s.State = StatePlaying })
	p.log.Info("playback started", "format", p.src.Format().String())

	for {
		// commands first so pause and drop land between cycles
		select {
		case cmd := <-p.cmds:
			if p.handle(cmd) {
				return nil
			}
			continue
		case <-ctx.Done():
			return nil
		default:
		}

		if p.state() == StatePaused {
			select {
			case cmd := <-p.cmds:
				if p.handle(cmd) {
					return nil
				}
			case <-ctx.Done():
				return nil
			}
			continue
		}

		space := p.out.BufferSpace()
		if space == 0 {
			// stopped underneath us; wait for the engine or a command
			select {
			case cmd := <-p.cmds:
				if p.handle(cmd) {
					return nil
				}
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}

		done, err := p.feed(space)
		if err != nil {
			p.update(func(s *Status) { s.State = StateStopped })
			return err
		}
		if done {
			p.update(func(s *Status) { s.State = StateFinished })
			p.log.Info("playback finished", "written", p.Status().Written)
			return nil
		}
	}
}

// feed writes at most space bytes, reading from the source when nothing
// is pending. It reports true once the source is exhausted.
func (p *Player) feed(space int) (bool, error) {
	if len(p.pending) == 0 {
		n := min(space, len(p.buf))
		n, err := p.src.Read(p.buf[:n])
		if err == io.EOF && n == 0 {
			return true, nil
		}
		if err != nil && err != io.EOF {
			return false, fmt.Errorf("read %s: %w", p.src.Title(), err)
		}
		p.pending = p.buf[:n]
	}

	n := min(space, len(p.pending))
	w := p.out.Write(p.pending[:n])
	p.pending = p.pending[w:]

	p.mu.Lock()
	p.status.Written += uint64(w)
	p.mu.Unlock()
	return false, nil
}

// handle applies cmd and reports whether the loop should exit
func (p *Player) handle(cmd Command) bool {
	switch cmd {
	case CmdTogglePause:
		if p.state() == StatePaused {
			return p.handle(CmdUnpause)
		}
		return p.handle(CmdPause)

	case CmdPause:
		if p.state() != StatePlaying {
			return false
		}
		if err := p.out.Pause(); err != nil {
			p.log.Error("pause failed", "error", err)
			return false
		}
		p.update(func(s *Status) { s.State = StatePaused })

	case CmdUnpause:
		if p.state() != StatePaused {
			return false
		}
		if err := p.out.Unpause(); err != nil {
			p.log.Error("unpause failed", "error", err)
			return false
		}
		p.update(func(s *Status) { s.State = StatePlaying })

	case CmdDrop:
		p.pending = nil
		if err := p.out.Drop(); err != nil {
			p.log.Error("drop failed", "error", err)
		}
		p.update(func(*Status) {})

	case CmdVolumeUp:
		p.stepVolume(p.step)

	case CmdVolumeDown:
		p.stepVolume(-p.step)

	case CmdQuit:
		p.log.Info("quit requested")
		return true
	}
	return false
}

func (p *Player) stepVolume(delta int) {
	if p.mixer == nil {
		return
	}

	l, r, err := p.mixer.GetVolume()
	if err != nil {
		p.log.Warn("failed to read volume", "error", err)
		return
	}
	level := clampVolume((l+r)/2 + delta)
	if err := p.mixer.SetVolume(level, level); err != nil {
		p.log.Warn("failed to set volume", "error", err)
		return
	}
	p.update(func(s *Status) { s.Volume = level })
}

// refreshVolume republishes a volume changed outside the player
func (p *Player) refreshVolume() {
	l, r, err := p.mixer.GetVolume()
	if err != nil {
		p.log.Debug("volume read after change failed", "error", err)
		return
	}
	level := (l + r) / 2

	p.mu.Lock()
	same := p.status.Volume == level
	p.mu.Unlock()
	if same {
		return
	}

	p.log.Debug("volume changed externally", "volume", level)
	p.update(func(s *Status) { s.Volume = level })
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > output.MaxVolume {
		return output.MaxVolume
	}
	return v
}

// watchChannel waits on the mixer's change channel
func (p *Player) watchChannel(ctx context.Context) {
	changed := p.mixer.Changed()
	if changed == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			p.refreshVolume()
		}
	}
}
