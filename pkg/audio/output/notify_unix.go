//go:build unix

// ABOUTME: Self-pipe wakeup for volume change notifications
// ABOUTME: The read end is handed to the host to poll alongside its other descriptors
package output

import (
	"sync"

	"golang.org/x/sys/unix"
)

var wakeByte = []byte{1}

// notifier fds are only touched under mu; closed turns post and drain into
// no-ops so a late listener never writes to a reused descriptor
type notifier struct {
	mu     sync.RWMutex
	closed bool
	r, w   int
	ch     chan struct{}
}

func newNotifier() (*notifier, error) {
	p := make([]int, 2)
	if err := unix.Pipe(p); err != nil {
		return nil, err
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, err
		}
	}
	return &notifier{r: p[0], w: p[1], ch: make(chan struct{}, 1)}, nil
}

// post never blocks; a full pipe already holds a pending wakeup
func (n *notifier) post() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}
	unix.Write(n.w, wakeByte)
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *notifier) drain() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}
	var buf [64]byte
	for {
		if c, err := unix.Read(n.r, buf[:]); c <= 0 || err != nil {
			break
		}
	}
	select {
	case <-n.ch:
	default:
	}
}

func (n *notifier) fds() []int { return []int{n.r} }

func (n *notifier) changed() <-chan struct{} { return n.ch }

func (n *notifier) close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	werr := unix.Close(n.w)
	if err := unix.Close(n.r); err != nil {
		return err
	}
	return werr
}
