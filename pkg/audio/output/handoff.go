// ABOUTME: Single-slot rendezvous between the producer and the real-time render callback
// ABOUTME: Carries pause, drop and close through a typed slot state and a stopping flag
package output

import (
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
)

// slotState is the single message passed between the two sides. The
// callback consumes every state other than slotEmpty exactly once.
type slotState int

const (
	slotEmpty     slotState = iota
	slotPublished           // callback is waiting for buf to be filled
	slotConsumed            // producer filled buf
	slotDropped             // producer discarded buf unwritten
	slotStopped             // producer silenced the rest of buf
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotPublished:
		return "published"
	case slotConsumed:
		return "consumed"
	case slotDropped:
		return "dropped"
	case slotStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// HandoffStats counts callback cycles by outcome
type HandoffStats struct {
	Published uint64 // slots offered by the callback
	Consumed  uint64 // slots filled completely by Write
	Dropped   uint64 // slots released by Drop
	Stopped   uint64 // slots silenced by Pause or Close
	Skipped   uint64 // cycles that returned no data while stopping
}

// Handoff passes the render callback's destination buffer to the producer
// one cycle at a time. Render runs on the device clock and blocks until the
// producer has filled the slot or a flush released it; once stopping is
// set it returns immediately.
//
// Write, Flush and Space are called from a single producer goroutine.
type Handoff struct {
	stopping atomic.Bool

	mu      sync.Mutex
	cond    *sync.Cond
	state   slotState
	buf     []byte
	partial bool

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
	stopped   atomic.Uint64
	skipped   atomic.Uint64
}

// NewHandoff creates an idle handoff
func NewHandoff() *Handoff {
	h := &Handoff{}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Render is the hal.RenderFunc side. It must not allocate.
func (h *Handoff) Render(dst []byte) hal.RenderStatus {
	if h.stopping.Load() {
		h.skipped.Add(1)
		return hal.RenderNoData
	}

	h.mu.Lock()
	// a flush may have run between the check above and the lock
	if h.stopping.Load() {
		h.mu.Unlock()
		h.skipped.Add(1)
		return hal.RenderNoData
	}

	h.buf = dst
	h.state = slotPublished
	h.published.Add(1)
	h.cond.Broadcast()

	for h.state == slotPublished {
		h.cond.Wait()
	}

	dropped := h.state == slotDropped
	h.state = slotEmpty
	h.buf = nil
	h.mu.Unlock()

	if dropped {
		return hal.RenderNoConnection
	}
	return hal.RenderOK
}

// Write copies p into the outstanding slot and returns the bytes accepted.
// Callers write no more than the last Space result.
func (h *Handoff) Write(p []byte) int {
	if len(p) == 0 {
		return 0
	}

	n := copy(h.buf, p)
	h.buf = h.buf[n:]

	if len(h.buf) > 0 {
		h.partial = true
		return n
	}

	h.mu.Lock()
	if h.state == slotPublished {
		h.state = slotConsumed
		h.consumed.Add(1)
		h.cond.Broadcast()
	}
	h.mu.Unlock()

	h.partial = false
	return n
}

// Space blocks until a slot is outstanding or the handoff is stopping and
// returns the bytes the producer may write
func (h *Handoff) Space() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	for h.state != slotPublished && !h.stopping.Load() {
		h.cond.Wait()
	}

	if h.state != slotPublished || h.stopping.Load() {
		return 0
	}
	return len(h.buf)
}

// Flush releases the outstanding slot. A drop hands it back untouched and
// the callback reports the cycle as lost; otherwise the unwritten rest is
// zero-filled so the device plays silence. Stopping is raised first so the
// callback cannot publish again; a drop restores it afterwards.
func (h *Handoff) Flush(drop bool) {
	wasStopping := h.stopping.Swap(true)

	h.mu.Lock()
	if h.state == slotPublished {
		if drop {
			h.state = slotDropped
			h.dropped.Add(1)
		} else {
			clear(h.buf)
			h.state = slotStopped
			h.stopped.Add(1)
		}
		h.buf = nil
	}
	h.partial = false
	h.cond.Broadcast()
	h.mu.Unlock()

	if drop {
		h.stopping.Store(wasStopping)
	}
}

// Drop discards the outstanding slot and keeps streaming
func (h *Handoff) Drop() { h.Flush(true) }

// Pause silences the outstanding slot and leaves the handoff stopping
func (h *Handoff) Pause() { h.Flush(false) }

// Close is Pause for a handoff that will not be resumed
func (h *Handoff) Close() { h.Flush(false) }

// Resume lets the callback publish slots again
func (h *Handoff) Resume() {
	h.stopping.Store(false)
}

// Stopping reports whether the callback currently returns without data
func (h *Handoff) Stopping() bool {
	return h.stopping.Load()
}

// Partial reports whether the outstanding slot has been written in part
func (h *Handoff) Partial() bool {
	return h.partial
}

// Stats returns the cycle counters
func (h *Handoff) Stats() HandoffStats {
	return HandoffStats{
		Published: h.published.Load(),
		Consumed:  h.consumed.Load(),
		Dropped:   h.dropped.Load(),
		Stopped:   h.stopped.Load(),
		Skipped:   h.skipped.Load(),
	}
}
