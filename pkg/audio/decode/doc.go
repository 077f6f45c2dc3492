// ABOUTME: PCM sources for the output engine
// ABOUTME: Decodes MP3, FLAC, WAV and raw PCM files, and generates a test tone
// Package decode turns files and streams into interleaved PCM.
//
// Every Source reports the audio.Format of the bytes its Read returns, so the
// result can be handed straight to an output engine without conversion.
//
// Example:
//
//	src, err := decode.Open("track.flac")
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//	err = engine.Open(src.Format(), nil)
package decode
