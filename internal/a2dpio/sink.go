// SPDX-License-Identifier: AGPL-3.0-or-later
package a2dpio

import (
	"io"
	"log/slog"
	"sync"

	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/ffb"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/pion/rtp"
)

// reorderWindow is how many sequence numbers ahead of the last delivered
// packet Sink will hold out-of-order arrivals for, before giving up and
// delivering what it has (spec §4.3: "reorder within a small window...
// out-of-order beyond the window is dropped").
const reorderWindow = 8

// Sink decodes RTP-framed wire packets arriving on the Bluetooth socket
// back into PCM for a local client (spec §4.3 "sink direction").
type Sink struct {
	PCM     *graph.PCM
	Codec   codec.Adapter
	BT      io.Reader
	PCMPipe io.Writer
	Logger  *slog.Logger
	MTU     int

	Path     string
	Registry *Registry

	Control chan Signal

	mu       sync.Mutex
	haveSeq  bool
	lastSeq  uint16
	pending  map[uint16]*rtp.Packet

	buf *ffb.FFB
}

// Run drives the sink loop: read one RTP packet per BT.Read call (the
// Bluetooth socket is packet-oriented), reassemble in sequence order, and
// decode+forward PCM for every packet released from the reorder window.
func (s *Sink) Run() {
	if s.Registry != nil && s.Path != "" {
		s.Registry.Register(s.Path, s.Control)
		defer s.Registry.Unregister(s.Path)
	}
	if s.pending == nil {
		s.pending = make(map[uint16]*rtp.Packet)
	}
	if s.MTU <= 0 {
		s.MTU = 1024
	}
	if s.buf == nil {
		s.buf = ffb.New(s.MTU * 4)
	}
	raw := make([]byte, s.MTU)

	for {
		select {
		case sig, ok := <-s.Control:
			if !ok {
				return
			}
			if s.handleSignal(sig) {
				return
			}
			continue
		default:
		}

		n, err := s.BT.Read(raw)
		if err != nil {
			if err == io.EOF {
				return
			}
			s.log().Warn("bt read failed", "error", err)
			return
		}
		if n == 0 {
			continue
		}

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(raw[:n]); err != nil {
			s.log().Warn("rtp unmarshal failed", "error", err)
			continue
		}

		for _, ready := range s.admit(pkt) {
			s.deliver(ready)
		}
	}
}

func (s *Sink) handleSignal(sig Signal) (exit bool) {
	switch sig {
	case SignalDrop:
		s.mu.Lock()
		s.pending = make(map[uint16]*rtp.Packet)
		s.mu.Unlock()
		s.buf.Reset()
	case SignalClose:
		s.PCM.Close()
		return true
	case SignalDrain:
		s.PCM.FinishDrain()
	}
	return false
}

// admit applies the reorder-window policy and returns every packet now
// ready for delivery in sequence order (usually just pkt itself).
func (s *Sink) admit(pkt *rtp.Packet) []*rtp.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.haveSeq {
		s.haveSeq = true
		s.lastSeq = pkt.SequenceNumber - 1
	}

	delta := int16(pkt.SequenceNumber - s.lastSeq)
	if delta <= 0 {
		// duplicate or too-late arrival, drop it
		return nil
	}
	s.pending[pkt.SequenceNumber] = pkt

	var out []*rtp.Packet
	for {
		next := s.lastSeq + 1
		p, ok := s.pending[next]
		if !ok {
			if int16(pkt.SequenceNumber-next) > reorderWindow {
				// the gap has grown beyond the window: give up waiting on
				// `next` and skip it (spec §4.3: loss reported as silence).
				delete(s.pending, next)
				s.lastSeq = next
				continue
			}
			break
		}
		delete(s.pending, next)
		s.lastSeq = next
		out = append(out, p)
	}
	return out
}

func (s *Sink) deliver(pkt *rtp.Packet) {
	pcm, err := s.Codec.Decode(pkt.Payload)
	if err != nil {
		s.log().Warn("decode failed", "error", err)
		return
	}
	if _, err := s.PCMPipe.Write(pcm); err != nil {
		s.log().Warn("pcm write failed", "error", err)
	}
}

func (s *Sink) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
