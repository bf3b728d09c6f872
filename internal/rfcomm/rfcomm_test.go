// SPDX-License-Identifier: AGPL-3.0-or-later
package rfcomm_test

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/btaudio/btaudiod/internal/rfcomm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineKinds(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw  string
		kind rfcomm.LineKind
		name string
		args string
	}{
		{"AT+BRSF=193", rfcomm.LineCommand, "BRSF", "193"},
		{"AT+CIND?", rfcomm.LineCommand, "CIND", ""},
		{"+BRSF:191", rfcomm.LineResponse, "BRSF", "191"},
		{"OK", rfcomm.LineResult, "OK", ""},
		{"ERROR", rfcomm.LineResult, "ERROR", ""},
		{"RING", rfcomm.LineUnsolicited, "", ""},
	}
	for _, c := range cases {
		l := rfcomm.ParseLine(c.raw)
		assert.Equal(t, c.kind, l.Kind, c.raw)
		if c.kind != rfcomm.LineUnsolicited && c.kind != rfcomm.LineResult {
			assert.Equal(t, c.name, l.Name, c.raw)
			assert.Equal(t, c.args, l.Args, c.raw)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "AT+BRSF=193", rfcomm.FormatCommand("BRSF", "193"))
	assert.Equal(t, "AT+CIND", rfcomm.FormatCommand("CIND", ""))
	assert.Equal(t, "+BRSF:191", rfcomm.FormatResponse("BRSF", "191"))
	assert.Equal(t, "+CIND", rfcomm.FormatResponse("CIND", ""))
}

// pipeTTY wraps a net.Pipe half so the Session sees a single ReadWriter.
type pipeTTY struct {
	net.Conn
}

func newSessionHarness(t *testing.T, dev *graph.Device) (*rfcomm.Session, net.Conn) {
	t.Helper()
	clientSide, daemonSide := net.Pipe()
	s := rfcomm.NewSession(dev, pipeTTY{daemonSide}, nil)
	s.NewCodecAdapter = func(name config.CodecName) (codec.Adapter, error) {
		return codec.New(name, codec.Params{SampleRate: 8000, Channels: 1, Bitpool: 26})
	}
	return s, clientSide
}

func sendAndExpectOK(t *testing.T, client net.Conn, line string) {
	t.Helper()
	_, err := io.WriteString(client, line+"\r\n")
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	var got strings.Builder
	buf := make([]byte, 256)
	for i := 0; i < 8 && !strings.Contains(got.String(), "OK"); i++ {
		n, err := client.Read(buf)
		require.NoError(t, err)
		got.Write(buf[:n])
	}
	assert.True(t, strings.Contains(got.String(), "OK"), got.String())
}

func TestSessionSLCHandshakeReachesComplete(t *testing.T) {
	t.Parallel()
	dev := graph.NewDevice([6]byte{1, 2, 3, 4, 5, 6}, 0, func() {})
	s, client := newSessionHarness(t, dev)
	go s.Run()
	defer client.Close()

	sendAndExpectOK(t, client, "AT+BRSF=193")
	sendAndExpectOK(t, client, "AT+BAC=1,2")
	sendAndExpectOK(t, client, "AT+CIND?")
	sendAndExpectOK(t, client, "AT+CMER=3,0,0,1")

	assert.Equal(t, rfcomm.SLCComplete, s.State())
	assert.Equal(t, uint32(193), dev.GetRFCOMMFeatures())
}

func TestBCSSelectsCodecOnAGTransport(t *testing.T) {
	t.Parallel()
	dev := graph.NewDevice([6]byte{1, 2, 3, 4, 5, 6}, 0, func() {})
	tr := graph.NewTransport("/org/btaudiod/hci0/dev_x/hfpag", graph.ProfileHFPAG, graph.DeviceRef{}, func() {})
	dev.AddTransport(tr)

	s, client := newSessionHarness(t, dev)
	go s.Run()
	defer client.Close()

	sendAndExpectOK(t, client, "AT+BCS=2")
	require.Eventually(t, func() bool {
		return tr.CodecAdapter() != nil && tr.Codec == config.CodecMSBC
	}, time.Second, time.Millisecond)
}

func TestBCSTearsDownExistingSCOLinkOnMSBCReselect(t *testing.T) {
	t.Parallel()
	dev := graph.NewDevice([6]byte{1, 2, 3, 4, 5, 6}, 0, func() {})
	tr := graph.NewTransport("/org/btaudiod/hci0/dev_x/hfpag", graph.ProfileHFPAG, graph.DeviceRef{}, func() {})
	tr.SelectCodec(config.CodecCVSD, codec.Params{}, mustCodec(t, config.CodecCVSD))
	tr.SetBTFD(7, 48, func(int) {})
	dev.AddTransport(tr)

	s, client := newSessionHarness(t, dev)
	var torndown *graph.Transport
	s.TeardownSCO = func(tr *graph.Transport) { torndown = tr }
	go s.Run()
	defer client.Close()

	sendAndExpectOK(t, client, "AT+BCS=2")
	require.Eventually(t, func() bool { return torndown != nil }, time.Second, time.Millisecond)
	assert.Equal(t, tr, torndown)
}

func TestVGSAppliesSpeakerVolume(t *testing.T) {
	t.Parallel()
	dev := graph.NewDevice([6]byte{1, 2, 3, 4, 5, 6}, 0, func() {})
	tr := graph.NewTransport("/org/btaudiod/hci0/dev_x/hfpag", graph.ProfileHFPAG, graph.DeviceRef{}, func() {})
	tr.Spk = graph.NewPCM(graph.DirectionSink, 0, 8000, 1)
	dev.AddTransport(tr)

	s, client := newSessionHarness(t, dev)
	go s.Run()
	defer client.Close()

	sendAndExpectOK(t, client, "AT+VGS=15")
	require.Eventually(t, func() bool { return tr.Spk.Volume.Level() == 15 }, time.Second, time.Millisecond)
}

func TestXAPLRecordsVendorAndBattery(t *testing.T) {
	t.Parallel()
	dev := graph.NewDevice([6]byte{1, 2, 3, 4, 5, 6}, 0, func() {})
	s, client := newSessionHarness(t, dev)
	go s.Run()
	defer client.Close()

	sendAndExpectOK(t, client, "AT+XAPL=abcd-1234,2")
	sendAndExpectOK(t, client, "AT+IPHONEACCEV=1,1,7")

	require.Eventually(t, func() bool { return dev.Battery == 7 }, time.Second, time.Millisecond)
	assert.Equal(t, "abcd-1234", dev.XAPLVendor)
}

func TestUnrecognizedATForwarded(t *testing.T) {
	t.Parallel()
	dev := graph.NewDevice([6]byte{1, 2, 3, 4, 5, 6}, 0, func() {})
	s, client := newSessionHarness(t, dev)

	var got rfcomm.Unsolicited
	done := make(chan struct{})
	s.Forward = func(u rfcomm.Unsolicited) {
		got = u
		close(done)
	}
	go s.Run()
	defer client.Close()

	_, err := io.WriteString(client, "AT+CLIP=1\r\n")
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forward not called")
	}
	assert.True(t, bytes.Contains([]byte(got.Raw), []byte("CLIP")))
}

func mustCodec(t *testing.T, name config.CodecName) codec.Adapter {
	t.Helper()
	a, err := codec.New(name, codec.Params{SampleRate: 8000, Channels: 1, Bitpool: 26})
	require.NoError(t, err)
	return a
}
