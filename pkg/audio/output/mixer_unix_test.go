//go:build unix

// ABOUTME: Tests for the mixer wakeup pipe
// ABOUTME: Polls the read end after an external volume change
package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMixerFdReadable(t *testing.T) {
	m, sys := openTestMixer(t)

	fds := m.Fds()
	require.Len(t, fds, 1)

	require.NoError(t, sys.SetVolumeScalar(1, 2, 0.5))

	pfd := []unix.PollFd{{Fd: int32(fds[0]), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, int(waitTimeout/time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, r, err := m.GetVolume()
	require.NoError(t, err)
	assert.Equal(t, 50, r)

	n, err = unix.Poll(pfd, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "GetVolume should drain the pipe")
}

func TestNotifierIdleAfterClose(t *testing.T) {
	n, err := newNotifier()
	require.NoError(t, err)
	require.NoError(t, n.close())

	// the kernel hands out the lowest free descriptors, usually the ones
	// just released
	p := make([]int, 2)
	require.NoError(t, unix.Pipe(p))
	defer unix.Close(p[0])
	defer unix.Close(p[1])
	require.NoError(t, unix.SetNonblock(p[0], true))

	n.post()
	n.drain()
	assert.NoError(t, n.close(), "second close is a no-op")

	var buf [8]byte
	_, err = unix.Read(p[0], buf[:])
	assert.ErrorIs(t, err, unix.EAGAIN, "no wakeup may land in another pipe")

	_, err = unix.Write(p[1], []byte{9})
	require.NoError(t, err)
	n.drain()
	c, err := unix.Read(p[0], buf[:])
	require.NoError(t, err)
	assert.Equal(t, 1, c, "drain after close must not read another pipe")
}

func TestMixerCloseDuringListenerFanOut(t *testing.T) {
	m, sys := openTestMixer(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			sys.SetVolumeScalar(1, 2, float32(i%100)/100)
			m.PropertyChanged(1, 2)
		}
	}()
	time.Sleep(time.Millisecond)
	require.NoError(t, m.Close())
	<-done

	m.PropertyChanged(1, 2)
	assert.Nil(t, m.Fds())
}
