//go:build unix

// ABOUTME: Mixer watcher polling the wakeup descriptors
// ABOUTME: Republishes device volume changes made outside the player
package player

import (
	"context"

	"golang.org/x/sys/unix"
)

const pollTimeoutMs = 100

// Watch republishes external volume changes until ctx is done. Stop it
// before closing the mixer.
func (p *Player) Watch(ctx context.Context) {
	if p.mixer == nil {
		return
	}

	fds := p.mixer.Fds()
	if len(fds) == 0 {
		p.watchChannel(ctx)
		return
	}

	pfds := make([]unix.PollFd, len(fds))
	for ctx.Err() == nil {
		for i, fd := range fds {
			pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
		}

		n, err := unix.Poll(pfds, pollTimeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			p.log.Error("mixer poll failed", "error", err)
			return
		}
		if n == 0 {
			continue
		}

		for _, pfd := range pfds {
			if pfd.Revents&(unix.POLLNVAL|unix.POLLERR) != 0 {
				p.log.Debug("mixer descriptor closed")
				return
			}
		}
		p.refreshVolume()
	}
}
