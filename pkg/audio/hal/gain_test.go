// ABOUTME: Tests for software gain
// ABOUTME: Tests per-channel scaling, clipping and unsupported formats
package hal

import (
	"encoding/binary"
	"math"
	"testing"
)

func s16Stereo() StreamDescription {
	return StreamDescription{
		SampleRate:       48000,
		FormatID:         FormatLinearPCM,
		Flags:            FlagIsPacked | FlagIsSignedInteger,
		BytesPerPacket:   4,
		FramesPerPacket:  1,
		BytesPerFrame:    4,
		ChannelsPerFrame: 2,
		BitsPerChannel:   16,
	}
}

func TestApplyGainS16(t *testing.T) {
	buf := make([]byte, 8)
	samples := []int16{1000, -1000, 500, -500}
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	if !ApplyGain(buf, s16Stereo(), []float32{0.5, 1.0}) {
		t.Fatal("expected s16 to be supported")
	}

	expected := []int16{500, -1000, 250, -500}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestApplyGainMute(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf, uint16(12345))
	binary.LittleEndian.PutUint16(buf[2:], uint16(0xFFFF))

	ApplyGain(buf, s16Stereo(), []float32{0, 0})

	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d: expected silence, got %#x", i, b)
		}
	}
}

func TestApplyGainFloat(t *testing.T) {
	desc := s16Stereo()
	desc.Flags = FlagIsPacked | FlagIsFloat
	desc.BitsPerChannel = 32

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(0.8))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(-0.8))

	ApplyGain(buf, desc, []float32{0.5, 0.25})

	left := math.Float32frombits(binary.LittleEndian.Uint32(buf))
	right := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))
	if math.Abs(float64(left)-0.4) > 1e-6 {
		t.Errorf("expected left 0.4, got %f", left)
	}
	if math.Abs(float64(right)+0.2) > 1e-6 {
		t.Errorf("expected right -0.2, got %f", right)
	}
}

func TestApplyGainUnity(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	if !ApplyGain(buf, s16Stereo(), []float32{1, 1}) {
		t.Fatal("expected unity gain to be reported as handled")
	}
	if buf[0] != 1 || buf[3] != 4 {
		t.Errorf("unity gain modified buffer: %v", buf)
	}
}

func TestApplyGainUnsupported(t *testing.T) {
	desc := s16Stereo()
	desc.Flags |= FlagIsBigEndian

	if ApplyGain(make([]byte, 4), desc, []float32{0.5, 0.5}) {
		t.Error("expected big-endian streams to be rejected")
	}
}
