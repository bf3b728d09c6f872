// SPDX-License-Identifier: AGPL-3.0-or-later
package sco_test

import (
	"testing"
	"time"

	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/btaudio/btaudiod/internal/sco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAGTransport() *graph.Transport {
	tr := graph.NewTransport("/org/bluealsa/hci0/dev_x/hfpag", graph.ProfileHFPAG, graph.DeviceRef{}, func() {})
	tr.Spk = graph.NewPCM(graph.DirectionSink, 0, 8000, 1)
	tr.Mic = graph.NewPCM(graph.DirectionSource, 0, 8000, 1)
	return tr
}

func TestIOThreadIdleToRunningOnSync(t *testing.T) {
	t.Parallel()
	tr := newAGTransport()
	reg := sco.NewRegistry()
	th := sco.NewIOThread(tr, reg, nil)
	assert.Equal(t, graph.SCOIdle, tr.GetSCOState())

	go th.Run()
	th.Control <- sco.SignalSync
	require.Eventually(t, func() bool {
		return tr.GetSCOState() == graph.SCORunning
	}, time.Second, time.Millisecond)

	th.Control <- sco.SignalClose
}

func TestIOThreadAGTransportLingersOnClose(t *testing.T) {
	t.Parallel()
	tr := newAGTransport()
	reg := sco.NewRegistry()
	th := sco.NewIOThread(tr, reg, nil)

	go th.Run()
	th.Control <- sco.SignalSync
	require.Eventually(t, func() bool { return tr.GetSCOState() == graph.SCORunning }, time.Second, time.Millisecond)

	th.Control <- sco.SignalPCMClose
	require.Eventually(t, func() bool { return tr.GetSCOState() == graph.SCOLinger }, time.Second, time.Millisecond)

	th.Control <- sco.SignalClose
}

func TestIOThreadNonAGSkipsLinger(t *testing.T) {
	t.Parallel()
	tr := graph.NewTransport("/org/bluealsa/hci0/dev_x/hfphf", graph.ProfileHFPHF, graph.DeviceRef{}, func() {})
	tr.Spk = graph.NewPCM(graph.DirectionSink, 0, 8000, 1)
	tr.Mic = graph.NewPCM(graph.DirectionSource, 0, 8000, 1)

	reg := sco.NewRegistry()
	th := sco.NewIOThread(tr, reg, nil)

	go th.Run()
	th.Control <- sco.SignalSync
	require.Eventually(t, func() bool { return tr.GetSCOState() == graph.SCORunning }, time.Second, time.Millisecond)

	th.Control <- sco.SignalPCMClose
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, graph.SCORunning, tr.GetSCOState(), "non-AG transport must not enter LINGER")

	th.Control <- sco.SignalClose
}

func TestIOThreadSyncWhileRunningDrainsThenResumes(t *testing.T) {
	t.Parallel()
	tr := newAGTransport()
	reg := sco.NewRegistry()
	th := sco.NewIOThread(tr, reg, nil)

	go th.Run()
	th.Control <- sco.SignalSync
	require.Eventually(t, func() bool { return tr.GetSCOState() == graph.SCORunning }, time.Second, time.Millisecond)

	tr.Spk.BeginDrain()
	th.Control <- sco.SignalSync
	require.Eventually(t, func() bool { return tr.GetSCOState() == graph.SCODraining }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return tr.GetSCOState() == graph.SCORunning }, time.Second, time.Millisecond)
	assert.False(t, tr.Spk.IsDraining())

	th.Control <- sco.SignalClose
}

func TestRegistryPingUnregisteredIsNoop(t *testing.T) {
	t.Parallel()
	reg := sco.NewRegistry()
	assert.NotPanics(t, func() { reg.Ping("/no/such/path") })
}
