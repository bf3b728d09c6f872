// SPDX-License-Identifier: AGPL-3.0-or-later
package rfcomm

import (
	"bufio"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/btaudio/btaudiod/internal/audio"
	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/graph"
)

// SLCState tracks progress through the slc handshake (spec §4.6: exchange
// feature masks, exchange/choose codec, enable indicator reporting).
type SLCState int

const (
	SLCInit SLCState = iota
	SLCFeaturesExchanged
	SLCCodecNegotiated
	SLCIndicatorsEnabled
	SLCComplete
)

// hfBRSF is the feature mask this daemon advertises as the audio gateway:
// codec negotiation only, no eSCO S4 or call-control bits (those profile
// features are out of scope for an audio-only daemon, spec.md Non-goals).
const hfBRSF = 0 |
	1<<5 // bit 5: codec negotiation

// Unsolicited is forwarded verbatim to any RPC client that has opened this
// device's RFCOMM dispatch socket (spec §4.6: "Unrecognised AT traffic is
// forwarded verbatim to any client that has opened the RFCOMM dispatch
// socket via RPC").
type Unsolicited struct {
	Raw string
}

// Session is the per-device RFCOMM AT command state machine (spec §3:
// "RFCOMM session... owned by a Device, holds tty fd, negotiated feature
// masks for both sides, current slc state, pending AT command queue, last
// battery level, and the Transport(s) it governs").
type Session struct {
	Device *graph.Device
	TTY    io.ReadWriter
	Logger *slog.Logger

	// Forward receives every AT line not consumed by the slc handshake or
	// the built-in async handlers, for relay to RPC subscribers.
	Forward func(Unsolicited)

	// TeardownSCO is invoked with the transport whose SCO link must be
	// closed after a +BCS mSBC reselection (spec §4.6 final sentence).
	// Wired by internal/engine to the running sco.IOThread's control
	// channel.
	TeardownSCO func(*graph.Transport)

	// NewCodecAdapter builds the codec.Adapter for a just-negotiated codec
	// name; wired by internal/engine so the Bitpool/SampleRate defaults
	// live with the rest of the daemon's config, not in this package.
	NewCodecAdapter func(name config.CodecName) (codec.Adapter, error)

	mu           sync.Mutex
	state        SLCState
	remoteBRSF   uint32
	remoteCodecs []config.CodecName
}

// NewSession constructs an idle slc state machine for dev over tty.
func NewSession(dev *graph.Device, tty io.ReadWriter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{Device: dev, TTY: tty, Logger: logger}
}

// Run reads AT lines from TTY until it returns EOF or an unrecoverable
// read error.
func (s *Session) Run() error {
	r := bufio.NewScanner(s.TTY)
	r.Split(splitATLines)
	for r.Scan() {
		raw := r.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		s.handleLine(ParseLine(raw))
	}
	return r.Err()
}

// splitATLines splits on CR, LF, or CRLF, dropping empty tokens, matching
// the loose framing real HFP modems use.
func splitATLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\r' || b == '\n' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	if atEOF {
		return 0, nil, io.EOF
	}
	return 0, nil, nil
}

func (s *Session) handleLine(l Line) {
	switch {
	case l.Kind == LineCommand && l.Name == "BRSF":
		s.handleBRSF(l)
	case l.Kind == LineCommand && l.Name == "BAC":
		s.handleBAC(l)
	case l.Kind == LineCommand && l.Name == "BCS":
		s.handleBCS(l)
	case l.Kind == LineCommand && l.Name == "CIND" && l.Args == "":
		s.handleCIND()
	case l.Kind == LineCommand && l.Name == "CMER":
		s.handleCMER()
	case l.Kind == LineCommand && l.Name == "VGS":
		s.handleVGS(l)
	case l.Kind == LineCommand && l.Name == "VGM":
		s.handleVGM(l)
	case l.Kind == LineCommand && l.Name == "XAPL":
		s.handleXAPL(l)
	case l.Kind == LineCommand && l.Name == "IPHONEACCEV":
		s.handleIPhoneBattery(l)
	default:
		if s.Forward != nil {
			s.Forward(Unsolicited{Raw: l.Raw})
		}
	}
}

// handleBRSF exchanges supported-feature masks (spec §4.6 step 1).
func (s *Session) handleBRSF(l Line) {
	mask, _ := strconv.ParseUint(l.Args, 10, 32)
	s.mu.Lock()
	s.remoteBRSF = uint32(mask)
	s.state = SLCFeaturesExchanged
	s.mu.Unlock()
	s.Device.SetRFCOMMFeatures(uint32(mask))

	s.write(FormatResponse("BRSF", strconv.FormatUint(uint64(hfBRSF), 10)))
	s.writeOK()
}

// handleBAC records the remote's available codec set (spec §4.6 step 2,
// first half: "exchange available codecs").
func (s *Session) handleBAC(l Line) {
	var codecs []config.CodecName
	for _, tok := range strings.Split(l.Args, ",") {
		switch strings.TrimSpace(tok) {
		case "1":
			codecs = append(codecs, config.CodecCVSD)
		case "2":
			codecs = append(codecs, config.CodecMSBC)
		}
	}
	s.mu.Lock()
	s.remoteCodecs = codecs
	s.mu.Unlock()
	s.writeOK()
}

// handleBCS finalizes the codec choice (spec §4.6 step 2, second half:
// "choose codec"). Per this codebase's resolution of the §9 Open Question
// on which SCO transport the reselection affects (recorded in DESIGN.md):
// a +BCS always targets the device's AG-role SCO transport, since `+BCS`
// only ever arrives on the RFCOMM session the AG itself owns — a device
// with only an HF-role transport locally never receives this command.
func (s *Session) handleBCS(l Line) {
	id, _ := strconv.Atoi(strings.TrimSpace(l.Args))
	name := config.CodecCVSD
	if id == 2 {
		name = config.CodecMSBC
	}

	s.mu.Lock()
	s.state = SLCCodecNegotiated
	s.mu.Unlock()

	tr, ok := s.agTransport()
	if ok {
		s.reselectCodec(tr, name)
	}
	s.writeOK()
}

func (s *Session) agTransport() (*graph.Transport, bool) {
	if tr, ok := s.Device.TransportByProfile(graph.ProfileHFPAG); ok {
		return tr, true
	}
	return s.Device.TransportByProfile(graph.ProfileHSPAG)
}

// reselectCodec flips tr's codec field and, if mSBC was just chosen and a
// SCO link is already up, tears it down so the next open uses the new
// settings (spec §4.6 final sentence).
func (s *Session) reselectCodec(tr *graph.Transport, name config.CodecName) {
	if s.NewCodecAdapter == nil {
		return
	}
	adapter, err := s.NewCodecAdapter(name)
	if err != nil {
		s.Logger.Warn("rfcomm codec build failed", "codec", name, "error", err)
		return
	}
	changed := tr.SelectCodec(name, codec.Params{}, adapter)
	if changed && name == config.CodecMSBC {
		if fd, _ := tr.BTFD(); fd != -1 && s.TeardownSCO != nil {
			s.TeardownSCO(tr)
		}
	}
}

// handleCIND reports supported indicators and their current values (spec
// §4.6 step 3, first half). Only the battery indicator is meaningful to an
// audio-only daemon; the rest are reported static/unsupported.
func (s *Session) handleCIND() {
	s.mu.Lock()
	s.state = SLCIndicatorsEnabled
	s.mu.Unlock()
	s.write(FormatResponse("CIND",
		`("service",(0-1)),("battchg",(0-5))`))
	s.writeOK()
}

// handleCMER enables indicator-update event reporting (spec §4.6 step 3,
// second half) and marks the slc handshake complete.
func (s *Session) handleCMER() {
	s.mu.Lock()
	s.state = SLCComplete
	s.mu.Unlock()
	s.writeOK()
}

// handleVGS applies a remote-reported speaker gain to the AG transport's
// PCM volume (spec §4.6: "volume changes on either side").
func (s *Session) handleVGS(l Line) {
	s.applyGain(l.Args, func(tr *graph.Transport) *graph.PCM { return tr.Spk })
	s.writeOK()
}

// handleVGM applies a remote-reported microphone gain.
func (s *Session) handleVGM(l Line) {
	s.applyGain(l.Args, func(tr *graph.Transport) *graph.PCM { return tr.Mic })
	s.writeOK()
}

func (s *Session) applyGain(arg string, pick func(*graph.Transport) *graph.PCM) {
	v, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || v < 0 || v > audio.VolumeMaxSCO {
		return
	}
	tr, ok := s.agTransport()
	if !ok {
		return
	}
	pcm := pick(tr)
	if pcm == nil {
		return
	}
	// AT+VGS/AT+VGM report a single 0-15 gain for the whole link; mirror it
	// onto both packed channels, preserving whatever mute state is already
	// set on each.
	pcm.SetVolume(audio.NewVolumeWord(v, pcm.Volume.Muted1(), v, pcm.Volume.Muted2()))
}

// handleXAPL parses the Apple accessory-identification extension and
// records the reported vendor string (spec §4.6: "battery updates from the
// Apple XAPL extension").
func (s *Session) handleXAPL(l Line) {
	parts := strings.SplitN(l.Args, ",", 2)
	if len(parts) > 0 {
		s.Device.SetXAPLVendor(strings.TrimSpace(parts[0]))
	}
	s.write(FormatResponse("XAPL", "iPhone,7"))
	s.writeOK()
}

// handleIPhoneBattery parses `AT+IPHONEACCEV=1,1,<level>` style battery
// reports that typically follow XAPL registration.
func (s *Session) handleIPhoneBattery(l Line) {
	fields := strings.Split(l.Args, ",")
	// fields[0] is the pair count, not a key; key/value pairs start at 1.
	for i := 1; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i]) == "1" {
			if v, err := strconv.Atoi(strings.TrimSpace(fields[i+1])); err == nil {
				s.Device.SetBattery(byte(v))
			}
		}
	}
	s.writeOK()
}

func (s *Session) write(line string) {
	_, _ = io.WriteString(s.TTY, line+"\r\n")
}

func (s *Session) writeOK() {
	s.write("OK")
}

// State returns the current slc handshake progress.
func (s *Session) State() SLCState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
