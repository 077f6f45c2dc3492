// ABOUTME: Audio output package for playing PCM through a render callback
// ABOUTME: Engine, handoff, device negotiation and mixer on top of pkg/audio/hal
// Package output plays PCM on a device that pulls audio through a real-time
// render callback.
//
// The producer goroutine and the callback meet in a Handoff holding one
// slot: the callback publishes its buffer and waits, the producer fills it
// with Write. Pause, Drop and Close release a waiting callback.
//
// Example:
//
//	sys, _ := hal.Open("malgo")
//	eng := output.NewEngine(sys, output.Options{})
//	if err := eng.Init(); err != nil {
//		return err
//	}
//	defer eng.Exit()
//
//	err := eng.Open(format, audio.DefaultChannelMap(format.Channels))
//	for {
//		n := eng.BufferSpace()
//		if n == 0 {
//			break
//		}
//		m, _ := src.Read(buf[:n])
//		eng.Write(buf[:m])
//	}
package output
