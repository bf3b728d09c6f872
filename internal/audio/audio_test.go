// SPDX-License-Identifier: AGPL-3.0-or-later
package audio_test

import (
	"math"
	"testing"
	"time"

	"github.com/btaudio/btaudiod/internal/audio"
	"github.com/stretchr/testify/assert"
)

func TestSampleFormatRoundTrip(t *testing.T) {
	t.Parallel()
	f := audio.NewSampleFormat(16, true, false)
	assert.Equal(t, 16, f.Bits())
	assert.Equal(t, 2, f.Bytes())
	assert.True(t, f.Signed())
	assert.False(t, f.BigEndian())
	assert.Equal(t, "S16LE", f.String())
}

func TestFrameSize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 4, audio.FrameSize(audio.FormatS16LE, 2))
}

func TestVolumeWordMuteAndLevel(t *testing.T) {
	t.Parallel()
	v := audio.NewMonoVolumeWord(50, false)
	assert.Equal(t, 50, v.Level())
	assert.False(t, v.Muted())

	muted := audio.NewMonoVolumeWord(50, true)
	assert.True(t, muted.Muted())
	assert.Equal(t, 0.0, muted.Gain())
}

func TestVolumeWordChannelPacking(t *testing.T) {
	t.Parallel()
	v := audio.NewVolumeWord(100, false, 20, true)
	assert.Equal(t, 100, v.Level1())
	assert.False(t, v.Muted1())
	assert.Equal(t, 20, v.Level2())
	assert.True(t, v.Muted2())
	// Level/Muted are channel 1's convenience aliases.
	assert.Equal(t, v.Level1(), v.Level())
	assert.Equal(t, v.Muted1(), v.Muted())
}

func TestVolumeWordLevelClampedToSevenBits(t *testing.T) {
	t.Parallel()
	v := audio.NewMonoVolumeWord(200, false)
	assert.Equal(t, audio.VolumeMaxA2DP, v.Level())
}

func TestVolumeWordGainMonotonic(t *testing.T) {
	t.Parallel()
	low := audio.NewMonoVolumeWord(32, false).Gain()
	high := audio.NewMonoVolumeWord(96, false).Gain()
	assert.Less(t, low, high)
	assert.Equal(t, 1.0, audio.NewMonoVolumeWord(audio.VolumeMaxA2DP, false).Gain())
}

func TestVolumeWordGainIsCubeRootNotCube(t *testing.T) {
	t.Parallel()
	gain := audio.NewMonoVolumeWord(64, false).Gain()

	// A cube (the old, wrong curve) attenuates level 64/127 to ~0.13
	// (~-18dB); the cube-root taper should land much closer to unity and
	// to the spec's "64 ≈ -6dB" reference point.
	assert.Greater(t, gain, 0.6)
	db := 20 * math.Log10(gain)
	assert.InDelta(t, -6.0, db, 4.5, "level 64 of 127 should land near the spec's -6dB reference point")
}

func TestApplyS16ClampsAndScales(t *testing.T) {
	t.Parallel()
	samples := []int16{100, -100, 32000}
	audio.ApplyS16(samples, 2)
	assert.Equal(t, int16(200), samples[0])
	assert.Equal(t, int16(-200), samples[1])
	assert.Equal(t, int16(32767), samples[2])
}

func TestASRSyncPacesFrames(t *testing.T) {
	t.Parallel()
	pacer := audio.NewASRSync(1000) // 1ms/frame
	pacer.Reset()

	start := time.Now()
	for i := 0; i < 5; i++ {
		pacer.Sync(1)
	}
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 4*time.Millisecond)
}
