// SPDX-License-Identifier: AGPL-3.0-or-later
package a2dpio

import "github.com/btaudio/btaudiod/internal/config"

// payloadType maps a codec to the RTP dynamic payload type carried on the
// A2DP media channel. Real A2DP negotiates these per-session; this daemon
// pins one value per codec since it never multiplexes two codecs on the
// same transport concurrently.
func payloadType(name config.CodecName) uint8 {
	switch name {
	case config.CodecSBC:
		return 96
	case config.CodecMSBC:
		return 97
	case config.CodecAAC:
		return 98
	case config.CodecAptX:
		return 99
	case config.CodecLDAC:
		return 100
	case config.CodecMP3:
		return 101
	default:
		return 96
	}
}
