// ABOUTME: Tests for engine options
// ABOUTME: Covers device, hog mode and sample rate sync options
package output

import (
	"os"
	"testing"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionRoundTrip(t *testing.T) {
	e := NewEngine(sim.Default(), Options{})

	tests := []struct {
		name, value, want string
	}{
		{OptionDevice, "USB DAC", "USB DAC"},
		{OptionDevice, "", ""},
		{OptionHogMode, "true", "true"},
		{OptionHogMode, "yes", "false"},
		{OptionSyncSampleRate, "true", "true"},
		{OptionSyncSampleRate, "TRUE", "false"},
	}

	for _, tt := range tests {
		require.NoError(t, e.SetOption(tt.name, tt.value))
		got, err := e.GetOption(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s=%q", tt.name, tt.value)
	}
}

func TestUnknownOption(t *testing.T) {
	e := NewEngine(sim.Default(), Options{})

	assert.ErrorIs(t, e.SetOption("buffer_size", "4"), ErrUnknownOption)
	_, err := e.GetOption("buffer_size")
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestDeviceOptionAppliesAtInit(t *testing.T) {
	e := NewEngine(sim.Default(), Options{})
	require.NoError(t, e.SetOption(OptionDevice, "USB DAC"))
	require.NoError(t, e.Init())
	assert.Equal(t, hal.DeviceID(2), e.Device().ID)
}

func TestHogOptionReapplies(t *testing.T) {
	e, sys := newTestEngine(t, Options{})

	require.NoError(t, e.SetOption(OptionHogMode, "true"))
	owner, _ := sys.HogOwner(1)
	assert.Equal(t, os.Getpid(), owner)

	require.NoError(t, e.SetOption(OptionHogMode, "false"))
	owner, _ = sys.HogOwner(1)
	assert.Equal(t, hal.NoHogOwner, owner)
}

func TestHogOptionRespectsOtherOwner(t *testing.T) {
	e, sys := newTestEngine(t, Options{})
	require.NoError(t, sys.SetHogOwner(1, 4242))

	require.NoError(t, e.SetOption(OptionHogMode, "true"))
	owner, _ := sys.HogOwner(1)
	assert.Equal(t, 4242, owner)
}

func TestSyncOptionResyncsOpenStream(t *testing.T) {
	e, sys := newTestEngine(t, Options{})

	format := s16Stereo
	format.SampleRate = 88200
	require.NoError(t, e.Open(format, nil))
	assert.Equal(t, 44100.0, sys.NominalRate(1))

	require.NoError(t, e.SetOption(OptionSyncSampleRate, "true"))
	assert.Equal(t, 88200.0, sys.NominalRate(1))
}

func TestSyncOptionBeforeOpen(t *testing.T) {
	e, sys := newTestEngine(t, Options{})

	require.NoError(t, e.SetOption(OptionSyncSampleRate, "true"))
	assert.Equal(t, 44100.0, sys.NominalRate(1))
}
