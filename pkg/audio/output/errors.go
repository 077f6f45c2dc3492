// ABOUTME: Error values returned by the output backend
// ABOUTME: Platform causes are attached so both sides stay inspectable with errors.Is
package output

import "errors"

var (
	// ErrNoDevice means the output device is missing or stopped responding
	ErrNoDevice = errors.New("no output device")

	// ErrUnsupportedFormat means the render unit rejected the stream format
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrSystem means an operating system resource could not be created
	ErrSystem = errors.New("system error")

	// ErrUnknownOption is returned by SetOption and GetOption for names
	// the engine does not know
	ErrUnknownOption = errors.New("unknown option")
)
