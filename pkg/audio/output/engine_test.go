// ABOUTME: Tests for the stream engine
// ABOUTME: Runs open, pause, drop and close against the sim backend
package output

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var s16Stereo = audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16, Signed: true}

func newTestEngine(t *testing.T, opts Options) (*Engine, *sim.System) {
	t.Helper()

	sys := sim.Default()
	e := NewEngine(sys, opts)
	require.NoError(t, e.Init())
	return e, sys
}

func openTestEngine(t *testing.T, opts Options) (*Engine, *sim.System, *sim.Unit) {
	t.Helper()

	e, sys := newTestEngine(t, opts)
	require.NoError(t, e.Open(s16Stereo, nil))
	return e, sys, sys.LastUnit()
}

func cycleAsync(u *sim.Unit) <-chan hal.RenderStatus {
	done := make(chan hal.RenderStatus, 1)
	go func() {
		s, _ := u.Cycle()
		done <- s
	}()
	return done
}

func TestInitDefaultDevice(t *testing.T) {
	e, sys := newTestEngine(t, Options{HogMode: true})

	dev := e.Device()
	assert.Equal(t, hal.DeviceID(1), dev.ID)
	assert.Equal(t, "Built-in Output", dev.Name)
	assert.False(t, dev.Named)
	assert.Equal(t, hal.DefaultOutput, sys.LastUnit().Subtype())

	owner, _ := sys.HogOwner(dev.ID)
	assert.Equal(t, hal.NoHogOwner, owner, "hog mode applies only to devices chosen by name")
}

func TestInitNamedDevice(t *testing.T) {
	e, sys := newTestEngine(t, Options{Device: "USB DAC", HogMode: true})

	dev := e.Device()
	assert.Equal(t, hal.DeviceID(2), dev.ID)
	assert.True(t, dev.Named)
	assert.Equal(t, hal.HALOutput, sys.LastUnit().Subtype())

	owner, _ := sys.HogOwner(dev.ID)
	assert.Equal(t, os.Getpid(), owner)
}

func TestInitUnknownNameFallsBack(t *testing.T) {
	e, _ := newTestEngine(t, Options{Device: "Missing Speakers"})
	assert.Equal(t, hal.DeviceID(1), e.Device().ID)
	assert.False(t, e.Device().Named)
}

func TestInitNoDevice(t *testing.T) {
	e := NewEngine(sim.New(), Options{})
	assert.ErrorIs(t, e.Init(), ErrNoDevice)
}

func TestInitUnitFailure(t *testing.T) {
	sys := sim.Default()
	boom := errors.New("boom")
	sys.Fail(sim.OpNewRenderUnit, boom)

	err := NewEngine(sys, Options{}).Init()
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.ErrorIs(t, err, boom)
}

func TestOpenRequestsLargestBuffer(t *testing.T) {
	e, _, u := openTestEngine(t, Options{})

	assert.True(t, e.IsOpen())
	assert.True(t, u.Running())
	assert.Equal(t, uint32(4096), u.BufferFrames())
	assert.Equal(t, BuildFormat(s16Stereo), u.Format())
	assert.Equal(t, s16Stereo, e.Format())
}

func TestOpenBufferSizeFailureOnlyLogs(t *testing.T) {
	e, sys := newTestEngine(t, Options{})
	sys.Fail(sim.OpSetBufferFrameSize, errors.New("busy"))

	require.NoError(t, e.Open(s16Stereo, nil))
	assert.Equal(t, uint32(512), sys.LastUnit().BufferFrames())
}

func TestOpenBufferRangeFailure(t *testing.T) {
	e, sys := newTestEngine(t, Options{})
	sys.Fail(sim.OpBufferFrameSizeRange, errors.New("gone"))

	assert.ErrorIs(t, e.Open(s16Stereo, nil), ErrUnsupportedFormat)
	assert.False(t, sys.LastUnit().Initialized())
	assert.False(t, e.IsOpen())
}

func TestOpenUnsupportedFormat(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	bad := s16Stereo
	bad.BitDepth = 12
	assert.ErrorIs(t, e.Open(bad, nil), ErrUnsupportedFormat)
}

func TestOpenStartFailure(t *testing.T) {
	e, sys := newTestEngine(t, Options{})
	sys.Fail(sim.OpStart, errors.New("no clock"))

	assert.ErrorIs(t, e.Open(s16Stereo, nil), ErrUnsupportedFormat)
	assert.False(t, sys.LastUnit().Initialized())
}

func TestOpenBeforeInit(t *testing.T) {
	e := NewEngine(sim.Default(), Options{})
	assert.ErrorIs(t, e.Open(s16Stereo, nil), ErrNoDevice)
}

func TestOpenSyncsSampleRate(t *testing.T) {
	e, sys := newTestEngine(t, Options{SyncSampleRate: true})

	hires := s16Stereo
	hires.SampleRate = 192000
	require.NoError(t, e.Open(hires, nil))
	assert.Equal(t, 96000.0, sys.NominalRate(1))
}

func TestOpenLeavesRateWithoutSync(t *testing.T) {
	e, sys := newTestEngine(t, Options{})

	hires := s16Stereo
	hires.SampleRate = 96000
	require.NoError(t, e.Open(hires, nil))
	assert.Equal(t, 44100.0, sys.NominalRate(1))
}

func TestOpenAppliesLayout(t *testing.T) {
	e, sys := newTestEngine(t, Options{})

	require.NoError(t, e.Open(s16Stereo, []audio.ChannelPosition{audio.ChannelLeft, audio.ChannelRight}))

	layout, ok := sys.Layout(1)
	require.True(t, ok)
	require.Len(t, layout.Descriptions, 2)
	assert.Equal(t, hal.LabelRight, layout.Descriptions[0].Label)
	assert.Equal(t, hal.LabelLeft, layout.Descriptions[1].Label)
}

func TestOpenWithoutMapKeepsLayout(t *testing.T) {
	_, sys, _ := openTestEngine(t, Options{})

	_, ok := sys.Layout(1)
	assert.False(t, ok)
}

func TestOpenLayoutFailureOnlyLogs(t *testing.T) {
	e, sys := newTestEngine(t, Options{})
	sys.Fail(sim.OpSetPreferredChannelLayout, errors.New("read-only"))

	assert.NoError(t, e.Open(s16Stereo, audio.DefaultChannelMap(2)))
}

func TestStreamThroughUnit(t *testing.T) {
	e, _, u := openTestEngine(t, Options{})

	size := u.BufferSize()
	want := make([]byte, size)
	for i := range want {
		want[i] = byte(i)
	}

	done := cycleAsync(u)
	require.Equal(t, size, e.BufferSpace())

	half := size / 2
	assert.Equal(t, half, e.Write(want[:half]))
	assert.Equal(t, size-half, e.BufferSpace())
	assert.Equal(t, size-half, e.Write(want[half:]))

	assert.Equal(t, hal.RenderOK, waitStatus(t, done))
	assert.Equal(t, want, u.Rendered())
	assert.Equal(t, uint64(1), e.Stats().Consumed)
}

func TestPauseReleasesCallback(t *testing.T) {
	e, _, u := openTestEngine(t, Options{})

	done := cycleAsync(u)
	size := e.BufferSpace()
	require.Positive(t, size)
	e.Write(bytes.Repeat([]byte{0x7F}, 10))

	require.NoError(t, e.Pause())
	assert.Equal(t, hal.RenderOK, waitStatus(t, done))
	assert.False(t, u.Running())

	got := u.Rendered()
	require.Len(t, got, size)
	assert.Equal(t, bytes.Repeat([]byte{0x7F}, 10), got[:10])
	assert.Equal(t, make([]byte, size-10), got[10:])

	require.NoError(t, e.Unpause())
	assert.True(t, u.Running())

	done = cycleAsync(u)
	require.Equal(t, size, e.BufferSpace())
	e.Write(make([]byte, size))
	assert.Equal(t, hal.RenderOK, waitStatus(t, done))
}

func TestDropKeepsStreaming(t *testing.T) {
	e, _, u := openTestEngine(t, Options{})

	done := cycleAsync(u)
	size := e.BufferSpace()
	require.NoError(t, e.Drop())
	assert.Equal(t, hal.RenderNoConnection, waitStatus(t, done))
	assert.Empty(t, u.Rendered())

	done = cycleAsync(u)
	require.Equal(t, size, e.BufferSpace())
	e.Write(make([]byte, size))
	assert.Equal(t, hal.RenderOK, waitStatus(t, done))
	assert.Equal(t, 1, u.Count(hal.RenderNoConnection))
	assert.Equal(t, 1, u.Count(hal.RenderOK))
}

func TestPauseStopFailure(t *testing.T) {
	e, sys, _ := openTestEngine(t, Options{})
	sys.Fail(sim.OpStop, errors.New("wedged"))

	assert.ErrorIs(t, e.Pause(), ErrNoDevice)
}

func TestUnpauseStartFailure(t *testing.T) {
	e, sys, _ := openTestEngine(t, Options{})
	require.NoError(t, e.Pause())
	sys.Fail(sim.OpStart, errors.New("wedged"))

	assert.ErrorIs(t, e.Unpause(), ErrNoDevice)
}

func TestCloseStopsCallbacks(t *testing.T) {
	e, _, u := openTestEngine(t, Options{})
	h := e.handoff.Load()

	done := cycleAsync(u)
	require.Positive(t, e.BufferSpace())
	require.NoError(t, e.Close())
	assert.Equal(t, hal.RenderOK, waitStatus(t, done))

	assert.False(t, u.Running())
	assert.False(t, u.Initialized())
	assert.False(t, e.IsOpen())

	assert.Equal(t, hal.RenderNoData, h.Render(make([]byte, 4)))
	assert.Equal(t, 0, e.BufferSpace())
	assert.Equal(t, 0, e.Write([]byte{1}))
	assert.NoError(t, e.Close())
}

func TestReopenAfterClose(t *testing.T) {
	e, _, u := openTestEngine(t, Options{})
	require.NoError(t, e.Close())

	mono := audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 8}
	require.NoError(t, e.Open(mono, nil))
	assert.True(t, u.Running())
	assert.Equal(t, uint32(1), u.Format().ChannelsPerFrame)
}

func TestExitReleasesEverything(t *testing.T) {
	e, sys, u := openTestEngine(t, Options{Device: "USB DAC", HogMode: true})

	require.NoError(t, e.Exit())
	assert.False(t, e.IsOpen())
	assert.True(t, u.Disposed())
	assert.True(t, sys.Unloaded())

	owner, _ := sys.HogOwner(2)
	assert.Equal(t, hal.NoHogOwner, owner)
}

func TestBufferSpaceDelay(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	assert.Zero(t, e.BufferSpaceDelay())
}

func TestEnginesAreIndependent(t *testing.T) {
	a, _ := newTestEngine(t, Options{})
	b, _ := newTestEngine(t, Options{Device: "USB DAC"})

	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, a.Device().ID, b.Device().ID)
}

func TestFreeRunningClock(t *testing.T) {
	sys := sim.Default()
	sys.SetClock(sim.ClockFree)

	e := NewEngine(sys, Options{})
	require.NoError(t, e.Init())
	require.NoError(t, e.Open(s16Stereo, nil))

	chunk := make([]byte, 1000)
	for i := range chunk {
		chunk[i] = 0x33
	}

	total := 0
	for total < 100000 {
		n := e.BufferSpace()
		if n > len(chunk) {
			n = len(chunk)
		}
		total += e.Write(chunk[:n])
	}

	require.NoError(t, e.Pause())
	require.NoError(t, e.Close())

	u := sys.LastUnit()
	rendered := u.Rendered()
	assert.GreaterOrEqual(t, len(rendered), 100000-u.BufferSize())
	for i, b := range rendered {
		if b != 0x33 && b != 0 {
			t.Fatalf("byte %d: unexpected %#x", i, b)
		}
	}
}
