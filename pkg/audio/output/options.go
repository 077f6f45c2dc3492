// ABOUTME: Textual option interface of the output engine
// ABOUTME: device, enable_hog_mode and sync_sample_rate
package output

import (
	"fmt"
	"strconv"

	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
)

// Option names understood by SetOption and GetOption
const (
	OptionDevice         = "device"
	OptionHogMode        = "enable_hog_mode"
	OptionSyncSampleRate = "sync_sample_rate"
)

// OptionNames lists every option name in display order
var OptionNames = []string{OptionDevice, OptionHogMode, OptionSyncSampleRate}

// SetOption changes an option by name. Boolean options are true only for
// the string "true". Hog mode is re-applied to the current device at once;
// enabling rate sync re-syncs the device with the open stream. A new device
// name takes effect at the next Init.
func (e *Engine) SetOption(name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch name {
	case OptionDevice:
		e.opts.Device = value

	case OptionHogMode:
		e.opts.HogMode = value == "true"
		if e.dev.ID != hal.UnknownDevice {
			e.neg.Hog(e.dev.ID, e.opts.HogMode)
		}

	case OptionSyncSampleRate:
		e.opts.SyncSampleRate = value == "true"
		if e.opts.SyncSampleRate && e.handoff.Load() != nil {
			e.neg.SyncSampleRate(e.dev.ID, e.desc)
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}

	e.log.Debug("option set", "name", name, "value", value)
	return nil
}

// GetOption returns an option by name
func (e *Engine) GetOption(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch name {
	case OptionDevice:
		return e.opts.Device, nil
	case OptionHogMode:
		return strconv.FormatBool(e.opts.HogMode), nil
	case OptionSyncSampleRate:
		return strconv.FormatBool(e.opts.SyncSampleRate), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}
}
