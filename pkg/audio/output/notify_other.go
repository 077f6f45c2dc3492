//go:build !unix

// ABOUTME: Channel-based volume change wakeup for platforms without pipes to poll
// ABOUTME: Fds is empty; hosts wait on Mixer.Changed instead
package output

type notifier struct {
	ch chan struct{}
}

func newNotifier() (*notifier, error) {
	return &notifier{ch: make(chan struct{}, 1)}, nil
}

func (n *notifier) post() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *notifier) drain() {
	select {
	case <-n.ch:
	default:
	}
}

func (n *notifier) fds() []int { return nil }

func (n *notifier) changed() <-chan struct{} { return n.ch }

func (n *notifier) close() error { return nil }
