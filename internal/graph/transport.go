// SPDX-License-Identifier: AGPL-3.0-or-later
package graph

import (
	"sync"
	"time"

	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/mitchellh/hashstructure/v2"
)

// Profile identifies which Bluetooth audio profile and role a Transport
// implements (spec §3: "profile is one of {A2DP-source, A2DP-sink,
// HFP-AG, HFP-HF, HSP-AG, HSP-HS}").
type Profile int

const (
	ProfileA2DPSource Profile = iota
	ProfileA2DPSink
	ProfileHFPAG
	ProfileHFPHF
	ProfileHSPAG
	ProfileHSPHS
)

func (p Profile) String() string {
	switch p {
	case ProfileA2DPSource:
		return "a2dpsrc"
	case ProfileA2DPSink:
		return "a2dpsnk"
	case ProfileHFPAG:
		return "hfpag"
	case ProfileHFPHF:
		return "hfphf"
	case ProfileHSPAG:
		return "hspag"
	case ProfileHSPHS:
		return "hsphs"
	default:
		return "unknown"
	}
}

// IsSCO reports whether this profile carries audio over a SCO link rather
// than an A2DP L2CAP stream.
func (p Profile) IsSCO() bool {
	switch p {
	case ProfileHFPAG, ProfileHFPHF, ProfileHSPAG, ProfileHSPHS:
		return true
	default:
		return false
	}
}

// IsAG reports whether this profile is the audio-gateway side of a SCO
// profile — only AG transports run the LINGER/CLOSING tail of the SCO
// state machine (spec §4.5: "Non-AG transports skip LINGER/CLOSING").
func (p Profile) IsAG() bool {
	return p == ProfileHFPAG || p == ProfileHSPAG
}

// SCOState is the per-transport SCO lifecycle state (spec §4.5).
type SCOState int

const (
	SCOIdle SCOState = iota
	SCORunning
	SCODraining
	SCOLinger
	SCOClosing
)

func (s SCOState) String() string {
	switch s {
	case SCOIdle:
		return "IDLE"
	case SCORunning:
		return "RUNNING"
	case SCODraining:
		return "DRAINING"
	case SCOLinger:
		return "LINGER"
	case SCOClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// DeviceRef is a weak handle to the owning Device: an id pair plus a
// lookup through the Adapter, never a pointer. This is the owner-to-owned
// rewrite spec §9 DESIGN NOTES calls for in place of the source's
// parent↔child cyclic pointers.
type DeviceRef struct {
	AdapterID int
	Address   [6]byte
}

// Transport is a codec-and-direction-specific audio endpoint on a Device
// (spec §3). A2DP profiles use the single PCM field; SCO profiles use the
// Spk and Mic pair.
type Transport struct {
	mu sync.Mutex

	Path    string
	Profile Profile
	Codec   config.CodecName
	Adapter codecAdapterHolder
	Device  DeviceRef

	// A2DP
	PCM *PCM

	// SCO
	Spk, Mic *PCM
	State    SCOState
	timer    *time.Timer

	btFD int
	mtu  int

	codecParamsHash uint64

	ref *Ref
}

type codecAdapterHolder struct {
	adapter codec.Adapter
}

// NewTransport constructs a Transport owned by the caller (refcount 1);
// onZero is invoked once the last reference is released, joining the I/O
// thread and closing btFD (spec §3: "reference count; destroyed when count
// reaches zero, which in turn joins the I/O thread").
func NewTransport(path string, profile Profile, dev DeviceRef, onZero func()) *Transport {
	t := &Transport{
		Path:    path,
		Profile: profile,
		Device:  dev,
		btFD:    -1,
	}
	t.ref = NewRef(onZero)
	return t
}

func (t *Transport) Ref() *Ref { return t.ref }

type codecSelection struct {
	Name   config.CodecName
	Params codec.Params
}

// SelectCodec swaps the active codec adapter under the transport mutex
// (spec §5: "PCM open, codec select, and SCO link installation are
// serialized by the transport mutex"). Returns false if name/params hash
// identically to the current selection (Testable Property 2 generalized to
// codec reselect idempotence) so RPC only emits a PropertiesChanged signal
// on a real change.
func (t *Transport) SelectCodec(name config.CodecName, params codec.Params, adapter codec.Adapter) (changed bool) {
	hash, err := hashstructure.Hash(codecSelection{Name: name, Params: params}, hashstructure.FormatV2, nil)
	if err != nil {
		hash = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Codec != "" && hash == t.codecParamsHash {
		return false
	}
	t.Codec = name
	t.Adapter.adapter = adapter
	t.codecParamsHash = hash
	return true
}

// PCMByMode resolves the "sink"/"source" path suffix PCM1 object paths use
// (spec §4.7: "one object per Transport PCM") back to the concrete PCM.
// A2DP transports answer to their own profile name (e.g. "a2dpsrc").
func (t *Transport) PCMByMode(mode string) (*PCM, bool) {
	switch mode {
	case "sink":
		if t.Spk != nil {
			return t.Spk, true
		}
	case "source":
		if t.Mic != nil {
			return t.Mic, true
		}
	case t.Profile.String():
		if t.PCM != nil {
			return t.PCM, true
		}
	}
	return nil, false
}

func (t *Transport) CodecAdapter() codec.Adapter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Adapter.adapter
}

// SetBTFD atomically replaces the transport's Bluetooth socket fd, closing
// any previous fd first (spec §4.4 step 4: "Atomically replace the
// Transport's bt_fd (closing any previous fd)").
func (t *Transport) SetBTFD(fd, mtu int, closePrev func(int)) {
	t.mu.Lock()
	prev := t.btFD
	t.btFD = fd
	t.mtu = mtu
	t.mu.Unlock()
	if prev != -1 && closePrev != nil {
		closePrev(prev)
	}
}

func (t *Transport) BTFD() (fd, mtu int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.btFD, t.mtu
}

// SetSCOState transitions the SCO state machine; callers must only invoke
// this from the transport's I/O thread (spec invariant 4: "timer-expired
// events mutate state only in the I/O thread").
func (t *Transport) SetSCOState(s SCOState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.State = s
}

func (t *Transport) GetSCOState() SCOState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State
}

// ArmTimer (re)arms the transport's single reusable state-machine timer
// (grounded on the audio package's ASRSync single-timer pattern, itself
// grounded on the teacher's call-expiry timer).
func (t *Transport) ArmTimer(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, fn)
}

func (t *Transport) StopTimer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
