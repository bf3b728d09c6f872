// SPDX-License-Identifier: AGPL-3.0-or-later
package graph_test

import (
	"testing"

	"github.com/btaudio/btaudiod/internal/audio"
	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/btaudio/btaudiod/internal/hci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefCountRunsOnZeroOnce(t *testing.T) {
	t.Parallel()
	calls := 0
	r := graph.NewRef(func() { calls++ })
	r.Add()
	assert.False(t, r.Unref())
	assert.True(t, r.Unref())
	assert.Equal(t, 1, calls)
}

func TestGraphResolveDevice(t *testing.T) {
	t.Parallel()
	g := graph.New()
	a := graph.NewAdapter(hci.AdapterInfo{ID: 0, Name: "hci0"}, func() {})
	g.AddAdapter(a)

	addr := [6]byte{1, 2, 3, 4, 5, 6}
	d := a.Device(addr, func() {})

	got, ok := g.ResolveDevice(graph.DeviceRef{AdapterID: 0, Address: addr})
	require.True(t, ok)
	assert.Same(t, d, got)

	_, ok = g.ResolveDevice(graph.DeviceRef{AdapterID: 99, Address: addr})
	assert.False(t, ok)
}

func TestPCMsNoDuplicateTriples(t *testing.T) {
	t.Parallel()
	g := graph.New()
	a := graph.NewAdapter(hci.AdapterInfo{ID: 0, Name: "hci0"}, func() {})
	g.AddAdapter(a)
	addr := [6]byte{1, 2, 3, 4, 5, 6}
	d := a.Device(addr, func() {})

	tr := graph.NewTransport("/org/bluealsa/hci0/dev_010203040506/a2dpsnk",
		graph.ProfileA2DPSink, graph.DeviceRef{AdapterID: 0, Address: addr}, func() {})
	tr.PCM = graph.NewPCM(graph.DirectionSink, audio.FormatS16LE, 44100, 2)
	d.AddTransport(tr)

	snaps := g.PCMs()
	require.Len(t, snaps, 1)

	seen := map[string]bool{}
	for _, s := range snaps {
		key := s.Device + "|" + s.Transport + "|" + s.Mode
		assert.False(t, seen[key], "duplicate (Device,Transport,Mode) triple")
		seen[key] = true
	}
}

func TestTransportSelectCodecIdempotent(t *testing.T) {
	t.Parallel()
	tr := graph.NewTransport("/p", graph.ProfileA2DPSource, graph.DeviceRef{}, func() {})
	params := codec.Params{SampleRate: 44100, Channels: 2, Bitpool: 53}
	changed := tr.SelectCodec("SBC", params, nil)
	assert.True(t, changed)

	changed = tr.SelectCodec("SBC", params, nil)
	assert.False(t, changed, "reselecting the same codec/params must be idempotent")
}

func TestPCMSetVolumeIdempotent(t *testing.T) {
	t.Parallel()
	p := graph.NewPCM(graph.DirectionSource, audio.FormatS16LE, 44100, 2)
	v := audio.NewMonoVolumeWord(64, false)
	assert.True(t, p.SetVolume(v))
	assert.False(t, p.SetVolume(v), "setting the same volume twice must be a no-op")
}

func TestSCOProfileIsAG(t *testing.T) {
	t.Parallel()
	assert.True(t, graph.ProfileHFPAG.IsAG())
	assert.False(t, graph.ProfileHFPHF.IsAG())
	assert.True(t, graph.ProfileHFPHF.IsSCO())
	assert.False(t, graph.ProfileA2DPSink.IsSCO())
}
