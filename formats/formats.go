// SPDX-License-Identifier: EPL-2.0

// Package formats wires every bundled decoder into an audio.Registry keyed
// by file extension.
package formats

import (
	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/formats/aiff"
	"github.com/ik5/tfplayer/formats/mp3"
	"github.com/ik5/tfplayer/formats/vorbis"
	"github.com/ik5/tfplayer/formats/wav"
)

// NewRegistry returns a registry holding the wav, mp3, vorbis and aiff decoders.
func NewRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("wave", wav.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})
	r.Register("aif", aiff.Decoder{})
	r.Register("aiff", aiff.Decoder{})

	return r
}
