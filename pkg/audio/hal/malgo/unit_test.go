// ABOUTME: Tests for the malgo render unit
// ABOUTME: Covers format mapping and rate ranges without a device
package malgo

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	ma "github.com/gen2brain/malgo"
)

func TestFormatType(t *testing.T) {
	pcm := func(bits uint32, flags hal.FormatFlags) hal.StreamDescription {
		return hal.StreamDescription{
			FormatID:         hal.FormatLinearPCM,
			Flags:            flags | hal.FlagIsPacked,
			ChannelsPerFrame: 2,
			BitsPerChannel:   bits,
		}
	}

	tests := []struct {
		name string
		desc hal.StreamDescription
		want ma.FormatType
		ok   bool
	}{
		{"u8", pcm(8, 0), ma.FormatU8, true},
		{"s16", pcm(16, hal.FlagIsSignedInteger), ma.FormatS16, true},
		{"s24", pcm(24, hal.FlagIsSignedInteger), ma.FormatS24, true},
		{"s32", pcm(32, hal.FlagIsSignedInteger), ma.FormatS32, true},
		{"f32", pcm(32, hal.FlagIsFloat), ma.FormatF32, true},
		{"s8", pcm(8, hal.FlagIsSignedInteger), ma.FormatUnknown, false},
		{"u16", pcm(16, 0), ma.FormatUnknown, false},
		{"s16be", pcm(16, hal.FlagIsSignedInteger|hal.FlagIsBigEndian), ma.FormatUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatType(tt.desc)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, hal.ErrNotSupported) {
				t.Fatalf("expected ErrNotSupported, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRateRanges(t *testing.T) {
	got := rateRanges([]ma.DataFormat{
		{Format: ma.FormatS16, Channels: 2, SampleRate: 48000},
		{Format: ma.FormatF32, Channels: 2, SampleRate: 48000},
		{Format: ma.FormatS16, Channels: 2, SampleRate: 44100},
	})
	want := []hal.ValueRange{{Min: 44100, Max: 44100}, {Min: 48000, Max: 48000}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestRateRangesAnyRate(t *testing.T) {
	for _, formats := range [][]ma.DataFormat{nil, {{Format: ma.FormatS16, SampleRate: 0}}} {
		got := rateRanges(formats)
		if len(got) != 1 || got[0].Min != minSampleRate || got[0].Max != maxSampleRate {
			t.Errorf("expected full range, got %v", got)
		}
	}
}
