// ABOUTME: Command line and config file settings for resonate-out
// ABOUTME: Viper defaults overlaid by an optional config file, environment and pflag flags
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Resonate-Protocol/resonate-out/internal/logging"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys understood in config files and as flags
const (
	KeyBackend        = "backend"
	KeyDevice         = "device"
	KeyHogMode        = "enable_hog_mode"
	KeySyncSampleRate = "sync_sample_rate"
	KeyVolume         = "volume"
	KeyLogLevel       = "loglevel"
	KeyLogFile        = "logfile"
	KeyTUI            = "tui"
	KeyRawRate        = "raw_rate"
	KeyRawChannels    = "raw_channels"
	KeyRawBits        = "raw_bits"
)

// DefaultTUILogFile receives logs when the TUI owns the terminal and no
// log file was given
const DefaultTUILogFile = "resonate-out.log"

// Config holds resolved settings
type Config struct {
	Backend        string
	Device         string
	HogMode        bool
	SyncSampleRate bool
	Volume         int // -1 leaves the device volume alone
	LogLevel       string
	LogFile        string
	TUI            bool

	// RawFormat describes headerless .raw and .pcm inputs
	RawFormat audio.Format

	// Source is the file or URL to play; empty plays a test tone
	Source string

	ShowVersion bool
}

// SetDefaults installs the defaults on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, "malgo")
	v.SetDefault(KeyDevice, "")
	v.SetDefault(KeyHogMode, false)
	v.SetDefault(KeySyncSampleRate, false)
	v.SetDefault(KeyVolume, -1)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyTUI, true)
	v.SetDefault(KeyRawRate, 44100)
	v.SetDefault(KeyRawChannels, 2)
	v.SetDefault(KeyRawBits, 16)
}

// NewFlagSet returns the flags of resonate-out. Flag names match the
// config keys so they bind with BindPFlags.
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("resonate-out", pflag.ContinueOnError)
	fs.StringP(KeyBackend, "b", "malgo", "Output backend (malgo, oto, portaudio, sim)")
	fs.StringP(KeyDevice, "d", "", "Output device name (default: system default output)")
	fs.Bool(KeyHogMode, false, "Take exclusive access of a device selected by name")
	fs.Bool(KeySyncSampleRate, false, "Switch the device sample rate to suit each stream")
	fs.Int(KeyVolume, -1, "Initial volume 0-100 (default: leave unchanged)")
	fs.String(KeyLogLevel, "info", "Log level (none, error, warn, info, debug)")
	fs.String(KeyLogFile, "", "Log file path (default: stdout, or "+DefaultTUILogFile+" with the TUI)")
	fs.Bool(KeyTUI, true, "Show the terminal UI")
	fs.Int(KeyRawRate, 44100, "Sample rate of raw PCM input")
	fs.Int(KeyRawChannels, 2, "Channel count of raw PCM input")
	fs.Int(KeyRawBits, 16, "Bits per sample of raw PCM input (8 is unsigned)")
	fs.StringP("config", "c", "", "Config file (yaml, toml or json)")
	fs.BoolP("version", "v", false, "Print version information and exit")
	return fs
}

// Load resolves settings from args, the environment (RESONATE_OUT_*) and
// an optional config file, in decreasing precedence. pflag.ErrHelp is
// returned for -h.
func Load(args []string) (Config, error) {
	fs := NewFlagSet()
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return fromFlags(fs)
}

func fromFlags(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("RESONATE_OUT")
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	showVersion, _ := fs.GetBool("version")
	cfg := Config{
		Backend:        v.GetString(KeyBackend),
		Device:         v.GetString(KeyDevice),
		HogMode:        v.GetBool(KeyHogMode),
		SyncSampleRate: v.GetBool(KeySyncSampleRate),
		Volume:         v.GetInt(KeyVolume),
		LogLevel:       strings.ToLower(v.GetString(KeyLogLevel)),
		LogFile:        v.GetString(KeyLogFile),
		TUI:            v.GetBool(KeyTUI),
		RawFormat: audio.Format{
			SampleRate: v.GetInt(KeyRawRate),
			Channels:   v.GetInt(KeyRawChannels),
			BitDepth:   v.GetInt(KeyRawBits),
		},
		Source:      fs.Arg(0),
		ShowVersion: showVersion,
	}
	cfg.RawFormat.Signed = cfg.RawFormat.BitDepth > 8

	if cfg.TUI && cfg.LogFile == "" {
		cfg.LogFile = DefaultTUILogFile
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges that viper cannot
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(logging.Levels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("%s must be one of %s, got %q", KeyLogLevel, strings.Join(logging.Levels, ", "), c.LogLevel))
	}
	if c.Volume < -1 || c.Volume > 100 {
		errs = append(errs, fmt.Errorf("%s must be between 0 and 100, got %d", KeyVolume, c.Volume))
	}
	if c.Backend == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyBackend))
	}
	return errors.Join(errs...)
}

// EngineOptions returns the engine options as the textual name/value pairs
// the engine's SetOption accepts
func (c Config) EngineOptions() [][2]string {
	return [][2]string{
		{"device", c.Device},
		{"enable_hog_mode", fmt.Sprint(c.HogMode)},
		{"sync_sample_rate", fmt.Sprint(c.SyncSampleRate)},
	}
}
