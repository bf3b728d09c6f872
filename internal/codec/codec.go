// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codec implements the audio codec adapters a transport selects
// between via RPC's SelectCodec. Each Adapter turns one PCM frame into one
// wire frame (Encode) or back (Decode); internal/a2dpio and internal/sco
// hold a single Adapter value per transport and never switch on codec name
// themselves, matching the "dispatch via stored interface value" decision
// recorded for this project.
package codec

import (
	"errors"
	"fmt"

	"github.com/btaudio/btaudiod/internal/config"
)

var (
	ErrUnknownCodec  = errors.New("codec: unknown codec name")
	ErrShortPCMFrame = errors.New("codec: PCM input shorter than one frame")
	ErrShortWireFrame = errors.New("codec: wire input shorter than one frame")
)

// Adapter encodes/decodes one transport's audio between PCM and its wire
// representation. Implementations are not required to be safe for
// concurrent use; internal/a2dpio and internal/sco each own one Adapter
// per direction and call it from a single goroutine.
type Adapter interface {
	// Name identifies the codec as used on RPC's codec-selection surface.
	Name() config.CodecName
	// PCMFrameBytes is how many PCM bytes Encode consumes per call.
	PCMFrameBytes() int
	// WireFrameBytes is how many bytes Decode consumes per call; codecs
	// with variable-rate wire frames return 0 and Decode consumes a
	// caller-supplied framed chunk instead.
	WireFrameBytes() int
	// Encode turns one PCM frame into its wire representation.
	Encode(pcm []byte) ([]byte, error)
	// Decode turns one wire frame back into PCM.
	Decode(wire []byte) ([]byte, error)
}

// Params configures a codec adapter at SelectCodec time.
type Params struct {
	SampleRate int
	Channels   int
	// Bitpool is SBC/mSBC's quality/bitrate knob (A2DP bitpool); ignored by
	// other codecs.
	Bitpool int
}

// New builds the Adapter for name, or ErrUnknownCodec if name isn't one of
// the codecs this daemon supports (config.Validate rejects DefaultA2DPCodec
// values outside this set, but RPC's SelectCodec can still be asked for any
// name a peer proposes during capability negotiation).
func New(name config.CodecName, p Params) (Adapter, error) {
	switch name {
	case config.CodecCVSD:
		return newCVSD(p), nil
	case config.CodecSBC:
		return newSBC(p, false), nil
	case config.CodecMSBC:
		return newSBC(p, true), nil
	case config.CodecAAC:
		return newVariableRate(name, p, 2), nil
	case config.CodecAptX:
		return newVariableRate(name, p, 4), nil
	case config.CodecLDAC:
		return newVariableRate(name, p, 3), nil
	case config.CodecMP3:
		return newVariableRate(name, p, 5), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
}
