// SPDX-License-Identifier: AGPL-3.0-or-later
package codec

import "github.com/btaudio/btaudiod/internal/config"

// cvsd is the narrowband SCO codec. CVSD's continuously-variable-slope
// companding is performed by the Bluetooth controller's air-interface
// hardware, not the host; the host side of the transport only ever sees
// already-decoded (or yet-to-encode) linear 16-bit PCM, so this adapter is
// an identity transform that exists to give CVSD transports the same
// Adapter shape every other codec has.
type cvsd struct {
	frameBytes int
}

func newCVSD(p Params) Adapter {
	const frameSamples = 60 // 7.5ms at 8kHz, bluez-alsa's default SCO MTU chunk
	return &cvsd{frameBytes: frameSamples * 2 * max(p.Channels, 1)}
}

func (c *cvsd) Name() config.CodecName { return config.CodecCVSD }
func (c *cvsd) PCMFrameBytes() int     { return c.frameBytes }
func (c *cvsd) WireFrameBytes() int    { return c.frameBytes }

func (c *cvsd) Encode(pcm []byte) ([]byte, error) {
	if len(pcm) < c.frameBytes {
		return nil, ErrShortPCMFrame
	}
	out := make([]byte, c.frameBytes)
	copy(out, pcm[:c.frameBytes])
	return out, nil
}

func (c *cvsd) Decode(wire []byte) ([]byte, error) {
	if len(wire) < c.frameBytes {
		return nil, ErrShortWireFrame
	}
	out := make([]byte, c.frameBytes)
	copy(out, wire[:c.frameBytes])
	return out, nil
}
