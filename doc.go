// SPDX-License-Identifier: EPL-2.0

// Package tfplayer is an embeddable audio playback engine.
//
// A single player goroutine decodes queued tracks, resamples them to the
// device rate and writes stereo float32 frames into a lock-free ring that
// the audio callback drains. Callers drive it through a Controller and
// follow it through an ordered event stream.
//
// # Packages
//
//   - player: the Controller, the playback loop, State and events
//   - sink: the audio device side (oto, beep, an offline clock, none)
//   - track: the Source contract, Track, Plugin and the Resolver
//   - plugins: local files, progressive HTTP and HLS playlists
//   - hls: playlist parsing, segment cache and background fetcher
//   - progressive: HTTP Range reader with bounded retry
//   - audio and formats: decoded PCM sources and the wav, mp3, vorbis and
//     aiff decoders
//
// # Quick Start
//
//	out, _ := sink.New(sink.Options{}, logger)
//	ctrl, _ := player.Spawn(out, player.Options{}, logger)
//	defer ctrl.Close()
//
//	resolver := track.NewResolver(logger, plugins.Default(plugins.Options{}, logger)...)
//	t, _ := resolver.Resolve(ctx, "https://example.com/live/index.m3u8")
//	_ = ctrl.QueueTrack(t)
//
//	for ev := range ctrl.Events() {
//	    if end, ok := ev.(player.TrackEnd); ok {
//	        log.Printf("finished %v", end.Track.Duration)
//	    }
//	}
//
// The tfplay command in cmd/tfplay wraps the same pipeline for the
// terminal, and its render subcommand writes the output to a WAV file
// instead of a device.
package tfplayer
