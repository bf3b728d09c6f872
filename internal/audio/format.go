// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audio holds the PCM format helpers shared by every transport's
// I/O thread: sample format encoding, software volume curves, and the
// asrsync pacing clock used to emit audio at a steady rate regardless of
// how bursty the Bluetooth link is.
package audio

import "fmt"

// SampleFormat packs (signedness, width, endianness) the way BlueALSA's
// snd_pcm_format_t bitfield does, so a transport can describe its PCM
// format to RPC clients as a single 16-bit word.
type SampleFormat uint16

const (
	formatSignedBit   SampleFormat = 1 << 8
	formatWidthMask   SampleFormat = 0x00FF
	formatBigEndian   SampleFormat = 1 << 9
)

var (
	FormatS16LE = NewSampleFormat(16, true, false)
	FormatS24LE = NewSampleFormat(24, true, false)
	FormatS32LE = NewSampleFormat(32, true, false)
	FormatU8    = NewSampleFormat(8, false, false)
)

// NewSampleFormat builds a SampleFormat word from its components.
func NewSampleFormat(bits int, signed, bigEndian bool) SampleFormat {
	f := SampleFormat(bits) & formatWidthMask
	if signed {
		f |= formatSignedBit
	}
	if bigEndian {
		f |= formatBigEndian
	}
	return f
}

// Bits returns the sample width in bits.
func (f SampleFormat) Bits() int { return int(f & formatWidthMask) }

// Bytes returns the sample width in bytes, rounded up.
func (f SampleFormat) Bytes() int { return (f.Bits() + 7) / 8 }

// Signed reports whether samples are signed.
func (f SampleFormat) Signed() bool { return f&formatSignedBit != 0 }

// BigEndian reports the byte order samples are packed in.
func (f SampleFormat) BigEndian() bool { return f&formatBigEndian != 0 }

func (f SampleFormat) String() string {
	sign := "U"
	if f.Signed() {
		sign = "S"
	}
	endian := "LE"
	if f.BigEndian() {
		endian = "BE"
	}
	if f.Bits() == 8 {
		return fmt.Sprintf("%s8", sign)
	}
	return fmt.Sprintf("%s%d%s", sign, f.Bits(), endian)
}

// FrameSize returns the size in bytes of one multi-channel sample frame.
func FrameSize(f SampleFormat, channels int) int {
	return f.Bytes() * channels
}
