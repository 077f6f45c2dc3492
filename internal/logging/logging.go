// ABOUTME: slog default logger setup
// ABOUTME: Text logs to stdout or JSON logs to a file at a named level
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Levels accepted by ConfigureDefaultLogger
var Levels = []string{"none", "error", "warn", "info", "debug"}

// ConfigureDefaultLogger installs the default slog logger.
//
// Valid levels are "none", "error", "warn", "info" and "debug". An empty
// logFile logs text to stdout; otherwise JSON is written to the file, which
// is truncated. The returned file is nil for stdout and must be closed by
// the caller otherwise:
//
//	f, err := logging.ConfigureDefaultLogger("info", path, slog.HandlerOptions{})
//	if f != nil {
//		defer f.Close()
//	}
func ConfigureDefaultLogger(logLevel string, logFile string, loggerOptions slog.HandlerOptions) (*os.File, error) {
	switch logLevel {
	case "none":
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	case "error":
		loggerOptions.Level = slog.LevelError
	case "warn":
		loggerOptions.Level = slog.LevelWarn
	case "info":
		loggerOptions.Level = slog.LevelInfo
	case "debug":
		loggerOptions.Level = slog.LevelDebug
	default:
		return nil, fmt.Errorf("unexpected log level %q", logLevel)
	}

	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &loggerOptions)))
		return nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &loggerOptions)))
	return f, nil
}
