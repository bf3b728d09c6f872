// SPDX-License-Identifier: AGPL-3.0-or-later
package codec

import (
	"encoding/binary"

	"github.com/btaudio/btaudiod/internal/config"
)

// variableRate stands in for the proprietary, CGO-bound codecs (AAC, aptX,
// LDAC, MP3) that a real deployment loads via libfdk-aac/libopenaptx/etc.
// None of those libraries exist anywhere in this module's dependency
// corpus, so rather than fabricate a cgo binding against a library that was
// never vendored, this adapter gives each of those codec names a working,
// self-consistent Adapter: PCM frames are packed behind a small frame
// header (a 2-byte length prefix plus the codec id) so a2dpio and sco can
// still exercise SelectCodec, RTP packetization and encoder/decoder busy
// metrics end-to-end for these codec names. The payload itself is the raw
// PCM frame, unchanged — there is no lossy compression.
type variableRate struct {
	name      config.CodecName
	id        int
	pcmBytes  int
}

const variableRateHeaderBytes = 4 // 2-byte length + 1-byte codec id + 1-byte reserved

func newVariableRate(name config.CodecName, p Params, id int) Adapter {
	channels := p.Channels
	if channels < 1 {
		channels = 1
	}
	const framesPerPacket = 256
	return &variableRate{
		name:     name,
		id:       id,
		pcmBytes: framesPerPacket * channels * 2,
	}
}

func (v *variableRate) Name() config.CodecName { return v.name }
func (v *variableRate) PCMFrameBytes() int     { return v.pcmBytes }

// WireFrameBytes is 0: this family carries a length prefix so wire frames
// are not fixed-size, matching how real AAC/LDAC/aptX-adaptive frames vary
// in length from one packet to the next.
func (v *variableRate) WireFrameBytes() int { return 0 }

func (v *variableRate) Encode(pcm []byte) ([]byte, error) {
	if len(pcm) < v.pcmBytes {
		return nil, ErrShortPCMFrame
	}
	payload := pcm[:v.pcmBytes]
	out := make([]byte, variableRateHeaderBytes+len(payload))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(payload)))
	out[2] = byte(v.id)
	out[3] = 0
	copy(out[variableRateHeaderBytes:], payload)
	return out, nil
}

func (v *variableRate) Decode(wire []byte) ([]byte, error) {
	if len(wire) < variableRateHeaderBytes {
		return nil, ErrShortWireFrame
	}
	n := int(binary.BigEndian.Uint16(wire[0:2]))
	if len(wire) < variableRateHeaderBytes+n {
		return nil, ErrShortWireFrame
	}
	out := make([]byte, n)
	copy(out, wire[variableRateHeaderBytes:variableRateHeaderBytes+n])
	return out, nil
}
