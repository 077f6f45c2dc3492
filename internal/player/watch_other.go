//go:build !unix

// ABOUTME: Mixer watcher for platforms without pollable descriptors
// ABOUTME: Waits on the mixer's change channel instead
package player

import "context"

// Watch republishes external volume changes until ctx is done
func (p *Player) Watch(ctx context.Context) {
	if p.mixer == nil {
		return
	}
	p.watchChannel(ctx)
}
