// SPDX-License-Identifier: AGPL-3.0-or-later
package codec_test

import (
	"testing"

	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnknownCodec(t *testing.T) {
	t.Parallel()
	_, err := codec.New(config.CodecName("bogus"), codec.Params{})
	require.ErrorIs(t, err, codec.ErrUnknownCodec)
}

func TestCVSDRoundTrip(t *testing.T) {
	t.Parallel()
	c, err := codec.New(config.CodecCVSD, codec.Params{Channels: 1})
	require.NoError(t, err)

	pcm := make([]byte, c.PCMFrameBytes())
	for i := range pcm {
		pcm[i] = byte(i)
	}

	wire, err := c.Encode(pcm)
	require.NoError(t, err)
	assert.Equal(t, c.WireFrameBytes(), len(wire))

	back, err := c.Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, pcm, back)
}

func TestCVSDShortFrame(t *testing.T) {
	t.Parallel()
	c, err := codec.New(config.CodecCVSD, codec.Params{Channels: 1})
	require.NoError(t, err)

	_, err = c.Encode(make([]byte, 1))
	require.ErrorIs(t, err, codec.ErrShortPCMFrame)

	_, err = c.Decode(make([]byte, 1))
	require.ErrorIs(t, err, codec.ErrShortWireFrame)
}

func TestSBCEncodeDecodeShape(t *testing.T) {
	t.Parallel()
	c, err := codec.New(config.CodecSBC, codec.Params{Channels: 2, Bitpool: 32})
	require.NoError(t, err)

	pcm := make([]byte, c.PCMFrameBytes())
	for i := range pcm {
		pcm[i] = byte(i * 7)
	}

	wire, err := c.Encode(pcm)
	require.NoError(t, err)
	assert.Equal(t, c.WireFrameBytes(), len(wire))

	back, err := c.Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, c.PCMFrameBytes(), len(back))
}

func TestSBCLowAmplitudeRoundTripsCloosely(t *testing.T) {
	t.Parallel()
	c, err := codec.New(config.CodecSBC, codec.Params{Channels: 1, Bitpool: 32})
	require.NoError(t, err)

	pcm := make([]byte, c.PCMFrameBytes())
	wire, err := c.Encode(pcm)
	require.NoError(t, err)

	back, err := c.Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, pcm, back, "silence should round-trip exactly")
}

func TestMSBCFixedShape(t *testing.T) {
	t.Parallel()
	c, err := codec.New(config.CodecMSBC, codec.Params{})
	require.NoError(t, err)
	assert.Equal(t, config.CodecMSBC, c.Name())
	assert.Positive(t, c.PCMFrameBytes())
	assert.Positive(t, c.WireFrameBytes())
}

func TestVariableRateRoundTrip(t *testing.T) {
	t.Parallel()
	for _, name := range []config.CodecName{config.CodecAAC, config.CodecAptX, config.CodecLDAC, config.CodecMP3} {
		c, err := codec.New(name, codec.Params{Channels: 2})
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
		assert.Equal(t, 0, c.WireFrameBytes())

		pcm := make([]byte, c.PCMFrameBytes())
		for i := range pcm {
			pcm[i] = byte(i)
		}

		wire, err := c.Encode(pcm)
		require.NoError(t, err)

		back, err := c.Decode(wire)
		require.NoError(t, err)
		assert.Equal(t, pcm, back)
	}
}

func TestVariableRateShortWireFrame(t *testing.T) {
	t.Parallel()
	c, err := codec.New(config.CodecAAC, codec.Params{Channels: 1})
	require.NoError(t, err)

	_, err = c.Decode([]byte{0, 1})
	require.ErrorIs(t, err, codec.ErrShortWireFrame)
}
