// ABOUTME: Platform audio object model used by output backends
// ABOUTME: Declares System and RenderUnit plus the backend registry
// Package hal describes the platform audio layer an output engine talks to.
//
// A System exposes output devices and their properties (name, nominal
// sample rates, channel layout, hog owner, stereo channel pair and volume
// scalars) and creates RenderUnits. A RenderUnit pulls PCM from a RenderFunc
// on the platform's real-time thread.
//
// Backends live in sub-packages and register themselves by name:
//
//	import _ "github.com/Resonate-Protocol/resonate-out/pkg/audio/hal/malgo"
//
//	sys, err := hal.Open("malgo")
//	dev, err := sys.DefaultOutputDevice()
package hal
