// SPDX-License-Identifier: EPL-2.0

// Package audio provides the PCM building blocks shared by the decoders
// and the player.
//
// # Sources
//
// A Source yields interleaved float32 samples in [-1, 1] with any channel
// count. Decoders may also implement Seekable and Bounded when they read
// from an io.ReadSeeker:
//
//	src, _ := wav.Decoder{}.Decode(file)
//	if s, ok := src.(audio.Seekable); ok {
//	    _ = s.Seek(30 * time.Second)
//	}
//
// ReadSamples returns io.EOF once the stream is exhausted.
//
// # Channel Mixing
//
// StereoMixer folds any channel layout to stereo. Mono is duplicated to
// both sides; wider layouts average even channels into left and odd
// channels into right.
//
// # Block Resampling
//
// SincFixedOut and CubicFixedOut implement BlockResampler. Each Process
// call produces exactly OutputFrames frames per channel and consumes the
// InputFramesNext value reported before the call, so a real-time consumer
// can size its input reads up front:
//
//	r, _ := audio.NewSincFixedOut(48000.0/44100, audio.DefaultSincParams(), 512, 2)
//	in := [][]float32{make([]float32, r.InputFramesNext()), ...}
//	_ = r.Process(in, out)
//
// Neither resampler allocates in Process.
//
// # Format Registry
//
// Registry maps a format key, usually a file extension, to a Decoder.
// Lookup takes a file path or URL path and picks the decoder from its
// extension.
package audio
