// SPDX-License-Identifier: EPL-2.0

// Package hls plays HTTP Live Streaming media playlists as one seekable
// byte stream.
//
// A playlist is split into segments that are fetched independently. The
// pieces fit together like this:
//
//   - SegmentInfos maps playback time to a (segment, byte offset) position
//     assuming a constant byte rate, and back.
//   - SegmentCache holds the fetched segment bytes and the reader cursor.
//     It is owned by a single goroutine; everything else talks to it
//     through method calls that become messages.
//   - Fetcher is a background worker that keeps a lookahead window ahead
//     of the cursor in the cache. Stop it with Close.
//   - MediaSource is the io.ReadSeeker handed to the container decoder.
//     Read blocks until the needed segment arrives; Seek never blocks.
//
// Open glues these together into a track.Track. Seeking a track rebuilds
// the MediaSource and the decoder at the target position, because the
// decoders cannot seek coarsely inside an open stream.
package hls
