// SPDX-License-Identifier: AGPL-3.0-or-later
package a2dpio

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/btaudio/btaudiod/internal/audio"
	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/pion/rtp"
)

// Source encodes raw PCM read from a local client into RTP-framed wire
// packets and paces them onto the Bluetooth socket (spec §4.3 "source
// direction").
type Source struct {
	PCM     *graph.PCM
	Codec   codec.Adapter
	BT      io.Writer
	PCMPipe io.Reader
	Pacer   *audio.ASRSync
	Logger  *slog.Logger

	// Path registers Control under the Registry so internal/rpc's
	// control-socket handlers can reach this thread by PCM path.
	Path     string
	Registry *Registry

	Control chan Signal

	mu       sync.Mutex
	paused   bool
	seq      uint16
	ssrc     uint32
	framesAt uint32

	EncoderBusy func(time.Duration) // optional hook for metrics
}

// Run drives the source loop until ctx-equivalent Close signal or the PCM
// pipe returns EOF. It is intended to run on its own goroutine, one per
// transport, for the lifetime of the transport (spec §5: "one I/O thread
// per running transport").
func (s *Source) Run() {
	if s.Registry != nil && s.Path != "" {
		s.Registry.Register(s.Path, s.Control)
		defer s.Registry.Unregister(s.Path)
	}

	buf := make([]byte, s.Codec.PCMFrameBytes())
	frameSamples := len(buf) / 2

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

		if s.isPaused() {
			sig, ok := <-s.Control
			if !ok {
				return
			}
			if s.handleSignal(sig) {
				return
			}
			continue
		}

		n, err := io.ReadFull(s.PCMPipe, buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.PCM.FinishDrain()
				return
			}
			s.log().Warn("source pcm read failed", "error", err)
			return
		}

		if s.PCM.SoftVolume {
			samples := audio.BytesToS16(buf[:n])
			audio.ApplyS16(samples, s.PCM.Volume.Gain())
			audio.S16ToBytes(samples, buf[:n])
		}

		start := time.Now()
		wire, err := s.Codec.Encode(buf[:n])
		busy := time.Since(start)
		if s.EncoderBusy != nil {
			s.EncoderBusy(busy)
		}
		if err != nil {
			s.log().Warn("encode failed", "error", err)
			continue
		}

		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    payloadType(s.Codec.Name()),
				SequenceNumber: s.nextSeq(),
				Timestamp:      s.advanceTimestamp(uint32(frameSamples)),
				SSRC:           s.ssrc,
			},
			Payload: wire,
		}
		out, err := pkt.Marshal()
		if err != nil {
			s.log().Warn("rtp marshal failed", "error", err)
			continue
		}

		s.Pacer.Sync(frameSamples)
		if _, err := s.BT.Write(out); err != nil {
			s.log().Warn("bt write failed", "error", err)
			return
		}
	}
}

// handleSignal applies a control signal, returning true if the thread
// should exit.
func (s *Source) handleSignal(sig Signal) (exit bool) {
	switch sig {
	case SignalPause:
		s.setPaused(true)
	case SignalResume:
		s.setPaused(false)
		s.Pacer.Reset()
	case SignalDrain:
		s.PCM.BeginDrain()
	case SignalDrop:
		// nothing buffered beyond the current frame to discard in this
		// simplified pipeline; acknowledged as a no-op.
	case SignalClose:
		s.PCM.Close()
		return true
	}
	return false
}

func (s *Source) setPaused(p bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = p
}

func (s *Source) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Source) nextSeq() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.seq
	s.seq++
	return v
}

func (s *Source) advanceTimestamp(frames uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.framesAt
	s.framesAt += frames
	return v
}

func (s *Source) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

