// SPDX-License-Identifier: AGPL-3.0-or-later
package a2dpio_test

import (
	"io"
	"sync"
	"testing"

	"github.com/btaudio/btaudiod/internal/a2dpio"
	"github.com/btaudio/btaudiod/internal/audio"
	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/stretchr/testify/require"
)

// loopbackBT is an in-memory substitute for the Bluetooth socket: Source
// writes RTP packets in, Sink reads the same packets back out, each Write
// call corresponding to exactly one Read call the way a SEQPACKET socket
// would deliver one L2CAP frame per read.
type loopbackBT struct {
	mu      sync.Mutex
	cond    *sync.Cond
	packets [][]byte
	closed  bool
}

func newLoopbackBT() *loopbackBT {
	l := &loopbackBT{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *loopbackBT) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	l.mu.Lock()
	l.packets = append(l.packets, cp)
	l.cond.Signal()
	l.mu.Unlock()
	return len(p), nil
}

func (l *loopbackBT) Read(p []byte) (int, error) {
	l.mu.Lock()
	for len(l.packets) == 0 && !l.closed {
		l.cond.Wait()
	}
	if len(l.packets) == 0 {
		l.mu.Unlock()
		return 0, io.EOF
	}
	pkt := l.packets[0]
	l.packets = l.packets[1:]
	l.mu.Unlock()
	n := copy(p, pkt)
	return n, nil
}

func (l *loopbackBT) Close() {
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
}

func TestSourceToSinkRoundTripCVSD(t *testing.T) {
	t.Parallel()

	srcCodec, err := codec.New(config.CodecCVSD, codec.Params{Channels: 1})
	require.NoError(t, err)
	sinkCodec, err := codec.New(config.CodecCVSD, codec.Params{Channels: 1})
	require.NoError(t, err)

	bt := newLoopbackBT()
	pcmIn, pcmInWriter := io.Pipe()
	pcmOutReader, pcmOutWriter := io.Pipe()

	srcPCM := graph.NewPCM(graph.DirectionSource, audio.FormatS16LE, 8000, 1)
	sinkPCM := graph.NewPCM(graph.DirectionSink, audio.FormatS16LE, 8000, 1)

	source := &a2dpio.Source{
		PCM:     srcPCM,
		Codec:   srcCodec,
		BT:      bt,
		PCMPipe: pcmIn,
		Pacer:   audio.NewASRSync(8000),
		Control: make(chan a2dpio.Signal, 4),
	}
	sink := &a2dpio.Sink{
		PCM:     sinkPCM,
		Codec:   sinkCodec,
		BT:      bt,
		PCMPipe: pcmOutWriter,
		Control: make(chan a2dpio.Signal, 4),
	}

	go source.Run()
	go sink.Run()

	frame := make([]byte, srcCodec.PCMFrameBytes())
	for i := range frame {
		frame[i] = byte(i)
	}

	go func() {
		_, _ = pcmInWriter.Write(frame)
	}()

	out := make([]byte, len(frame))
	_, err = io.ReadFull(pcmOutReader, out)
	require.NoError(t, err)
	require.Equal(t, frame, out)

	source.Control <- a2dpio.SignalClose
	sink.Control <- a2dpio.SignalClose
	bt.Close()
}

