// SPDX-License-Identifier: AGPL-3.0-or-later
package a2dpio

import (
	"testing"

	"github.com/btaudio/btaudiod/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestPayloadTypeDistinctPerCodec(t *testing.T) {
	t.Parallel()
	names := []config.CodecName{
		config.CodecSBC, config.CodecMSBC, config.CodecAAC,
		config.CodecAptX, config.CodecLDAC, config.CodecMP3,
	}
	seen := map[uint8]bool{}
	for _, name := range names {
		pt := payloadType(name)
		assert.False(t, seen[pt], "payload type %d reused across codecs", pt)
		seen[pt] = true
	}
}
