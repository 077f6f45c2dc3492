// ABOUTME: Tests for audio types
// ABOUTME: Tests format sizing, channel maps and sample packing
package audio

import "testing"

func TestFormatSizes(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		frameSize int
		perSecond int
	}{
		{"cd", Format{SampleRate: 44100, Channels: 2, BitDepth: 16, Signed: true}, 4, 176400},
		{"hires", Format{SampleRate: 96000, Channels: 2, BitDepth: 24, Signed: true}, 6, 576000},
		{"mono u8", Format{SampleRate: 8000, Channels: 1, BitDepth: 8}, 1, 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.FrameSize(); got != tt.frameSize {
				t.Errorf("expected frame size %d, got %d", tt.frameSize, got)
			}
			if got := tt.format.BytesPerSecond(); got != tt.perSecond {
				t.Errorf("expected %d bytes/s, got %d", tt.perSecond, got)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 2, BitDepth: 16, Signed: true, BigEndian: true}
	if got := f.String(); got != "s16be 48000Hz 2ch" {
		t.Errorf("unexpected format string %q", got)
	}
}

func TestDefaultChannelMap(t *testing.T) {
	if m := DefaultChannelMap(0); m != nil {
		t.Errorf("expected nil map for 0 channels, got %v", m)
	}

	mono := DefaultChannelMap(1)
	if len(mono) != 1 || mono[0] != ChannelMono {
		t.Errorf("expected [mono], got %v", mono)
	}

	stereo := DefaultChannelMap(2)
	if len(stereo) != 2 || stereo[0] != ChannelLeft || stereo[1] != ChannelRight {
		t.Errorf("expected [left right], got %v", stereo)
	}

	surround := DefaultChannelMap(6)
	if surround[3] != ChannelLFE {
		t.Errorf("expected LFE as fourth channel, got %v", surround[3])
	}

	wide := DefaultChannelMap(13)
	if wide[12] != ChannelInvalid {
		t.Errorf("expected invalid position past known order, got %v", wide[12])
	}
}

func TestPutSampleLE(t *testing.T) {
	tests := []struct {
		name     string
		sample   int32
		width    int
		expected []byte
	}{
		{"u8 zero", 0, 1, []byte{0x80}},
		{"s16", -2, 2, []byte{0xFE, 0xFF}},
		{"s24", 0x123456, 3, []byte{0x56, 0x34, 0x12}},
		{"s32", 0x01020304, 4, []byte{0x04, 0x03, 0x02, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, tt.width)
			PutSampleLE(dst, tt.sample, tt.width)
			for i := range dst {
				if dst[i] != tt.expected[i] {
					t.Fatalf("expected %v, got %v", tt.expected, dst)
				}
			}
		})
	}
}

func TestSampleTo24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected [3]byte
	}{
		{"zero", 0, [3]byte{0, 0, 0}},
		{"positive", 0x123456, [3]byte{0x56, 0x34, 0x12}},
		{"negative", -256, [3]byte{0x00, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleTo24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestRoundTrip24Bit(t *testing.T) {
	// Test that 24-bit samples survive round-trip conversion
	samples := []int32{0, 100000, -100000, Max24Bit, Min24Bit}

	for _, original := range samples {
		bytes := SampleTo24Bit(original)
		result := SampleFrom24Bit(bytes)
		// Mask to 24-bit for comparison
		expected := original & 0xFFFFFF
		if expected&0x800000 != 0 {
			expected |= ^0xFFFFFF
		}
		if result != expected {
			t.Errorf("round-trip failed: %d -> %v -> %d (expected %d)", original, bytes, result, expected)
		}
	}
}
