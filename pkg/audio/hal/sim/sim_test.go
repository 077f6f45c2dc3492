// ABOUTME: Tests for the simulated audio system
// ABOUTME: Covers devices, hog, volumes, failures and render clocks
package sim

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
)

func stereo16(rate float64) hal.StreamDescription {
	return hal.StreamDescription{
		SampleRate:       rate,
		FormatID:         hal.FormatLinearPCM,
		Flags:            hal.FlagIsSignedInteger | hal.FlagIsPacked,
		BytesPerPacket:   4,
		FramesPerPacket:  1,
		BytesPerFrame:    4,
		ChannelsPerFrame: 2,
		BitsPerChannel:   16,
	}
}

func startUnit(t *testing.T, s *System, fn hal.RenderFunc) *Unit {
	t.Helper()

	ru, err := s.NewRenderUnit(hal.DefaultOutput, 1)
	if err != nil {
		t.Fatalf("NewRenderUnit: %v", err)
	}
	u := ru.(*Unit)
	if err := u.SetStreamFormat(stereo16(44100)); err != nil {
		t.Fatalf("SetStreamFormat: %v", err)
	}
	u.SetRenderCallback(fn)
	if err := u.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := u.SetBufferFrameSize(16); err != nil {
		t.Fatalf("SetBufferFrameSize: %v", err)
	}
	if err := u.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return u
}

func TestDefaultDevices(t *testing.T) {
	s := Default()

	def, err := s.DefaultOutputDevice()
	if err != nil || def != 1 {
		t.Fatalf("DefaultOutputDevice = %d, %v", def, err)
	}

	ids, _ := s.OutputDevices()
	if len(ids) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(ids))
	}
	name, _ := s.DeviceName(ids[1])
	if name != "USB DAC" {
		t.Errorf("expected USB DAC, got %q", name)
	}

	if _, err := s.DeviceName(9); !errors.Is(err, hal.ErrUnknownDevice) {
		t.Errorf("expected ErrUnknownDevice, got %v", err)
	}
}

func TestNominalRate(t *testing.T) {
	s := Default()

	if err := s.SetNominalSampleRate(1, 48000); err != nil {
		t.Fatalf("SetNominalSampleRate: %v", err)
	}
	if got := s.NominalRate(1); got != 48000 {
		t.Errorf("expected 48000, got %g", got)
	}
	if err := s.SetNominalSampleRate(1, 22050); !errors.Is(err, hal.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}

func TestFailInjection(t *testing.T) {
	s := Default()
	boom := errors.New("boom")

	s.Fail(OpHogOwner, boom)
	if _, err := s.HogOwner(1); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}

	s.Fail(OpHogOwner, nil)
	if _, err := s.HogOwner(1); err != nil {
		t.Errorf("expected failure cleared, got %v", err)
	}
}

func TestManualCycle(t *testing.T) {
	s := Default()
	u := startUnit(t, s, func(buf []byte) hal.RenderStatus {
		for i := range buf {
			buf[i] = 0x01
		}
		return hal.RenderOK
	})

	if got := u.BufferSize(); got != 64 {
		t.Fatalf("expected 64 byte buffer, got %d", got)
	}

	status, ran := u.Cycle()
	if !ran || status != hal.RenderOK {
		t.Fatalf("Cycle = %v, %v", status, ran)
	}
	if !bytes.Equal(u.Rendered(), bytes.Repeat([]byte{0x01}, 64)) {
		t.Errorf("unexpected rendered bytes % x", u.Rendered())
	}

	if err := u.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, ran := u.Cycle(); ran {
		t.Error("Cycle ran on stopped unit")
	}
}

func TestStaleBytesVisible(t *testing.T) {
	s := Default()
	u := startUnit(t, s, func(buf []byte) hal.RenderStatus {
		buf[0] = 0
		return hal.RenderOK
	})

	u.Cycle()
	got := u.Rendered()
	if got[0] != 0 || got[1] != stalePattern {
		t.Errorf("expected untouched bytes to keep the stale pattern, got % x", got[:4])
	}
}

func TestNoDataNotRecorded(t *testing.T) {
	s := Default()
	u := startUnit(t, s, func(buf []byte) hal.RenderStatus {
		return hal.RenderNoData
	})

	u.Cycle()
	u.Cycle()
	if u.Count(hal.RenderNoData) != 2 {
		t.Errorf("expected 2 no-data cycles, got %d", u.Count(hal.RenderNoData))
	}
	if len(u.Rendered()) != 0 {
		t.Error("no-data cycles should not be recorded as output")
	}
}

func TestFreeClockStopWaits(t *testing.T) {
	s := Default()
	s.SetClock(ClockFree)

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	u := startUnit(t, s, func(buf []byte) hal.RenderStatus {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return hal.RenderOK
	})

	<-entered

	stopped := make(chan struct{})
	go func() {
		u.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a callback was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the callback finished")
	}
	if u.Running() {
		t.Error("unit still running after Stop")
	}
}

func TestVolumeAppliedToOutput(t *testing.T) {
	s := Default()
	s.SetVolumeScalar(1, 1, 0)

	u := startUnit(t, s, func(buf []byte) hal.RenderStatus {
		for i := range buf {
			buf[i] = 0x10
		}
		return hal.RenderOK
	})
	u.Cycle()

	got := u.Rendered()
	if got[0] != 0 || got[1] != 0 || got[2] != 0x10 || got[3] != 0x10 {
		t.Errorf("expected left muted and right untouched, got % x", got[:4])
	}
}

func TestRegisteredBackend(t *testing.T) {
	sys, err := hal.Open("sim")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sys.Name() != "sim" {
		t.Errorf("expected sim, got %q", sys.Name())
	}
}

func TestRejectsBadFormat(t *testing.T) {
	s := Default()
	ru, _ := s.NewRenderUnit(hal.HALOutput, 2)

	desc := stereo16(44100)
	desc.BitsPerChannel = 12
	if err := ru.SetStreamFormat(desc); !errors.Is(err, hal.ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}
