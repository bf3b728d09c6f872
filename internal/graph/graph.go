// SPDX-License-Identifier: AGPL-3.0-or-later
package graph

import (
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/puzpuzpuz/xsync/v4"
)

// Graph is the root of the object graph: the table of Adapters keyed by
// HCI device id the engine serves. It is the only component that resolves
// a Transport's weak DeviceRef back into a live *Device (spec §9: "Device
// id + a lookup function on the Adapter").
type Graph struct {
	adapters *xsync.Map[int, *Adapter]
}

func New() *Graph {
	return &Graph{adapters: xsync.NewMap[int, *Adapter]()}
}

func (g *Graph) AddAdapter(a *Adapter) {
	g.adapters.Store(a.ID, a)
}

func (g *Graph) RemoveAdapter(id int) {
	g.adapters.Delete(id)
}

func (g *Graph) Adapter(id int) (*Adapter, bool) {
	return g.adapters.Load(id)
}

func (g *Graph) Adapters() []*Adapter {
	var out []*Adapter
	g.adapters.Range(func(_ int, a *Adapter) bool {
		out = append(out, a)
		return true
	})
	return out
}

// ResolveDevice turns a Transport's DeviceRef into a live *Device, or false
// if the owning Adapter or Device no longer exists — used instead of a
// strong back-pointer per spec §9.
func (g *Graph) ResolveDevice(ref DeviceRef) (*Device, bool) {
	a, ok := g.adapters.Load(ref.AdapterID)
	if !ok {
		return nil, false
	}
	return a.LookupDevice(ref.Address)
}

// FindTransport locates a Transport by its RPC path across every
// Adapter/Device currently registered, used by internal/rpc to resolve a
// PCM1 or RFCOMM1 object path back to its owning Transport.
func (g *Graph) FindTransport(path string) (*Transport, bool) {
	for _, a := range g.Adapters() {
		for _, d := range a.Devices() {
			if t, ok := d.Transport(path); ok {
				return t, true
			}
		}
	}
	return nil, false
}

// FindDevice locates a Device by its adapter HCI name and device object
// path suffix (e.g. "hci0", "dev_AA_BB_CC_DD_EE_FF"), the address form
// internal/rpc's RFCOMM1 routes use.
func (g *Graph) FindDevice(hciName, deviceSuffix string) (*Device, bool) {
	for _, a := range g.Adapters() {
		if a.HCIName() != hciName {
			continue
		}
		for _, d := range a.Devices() {
			if deviceObjectPath(a.ID, d.Address) == deviceSuffix {
				return d, true
			}
		}
	}
	return nil, false
}

// Snapshot describes one PCM for GetPCMs output (spec §4.7, Testable
// Property 3: "no two entries with the same (Device, Transport, Mode)
// triple").
type Snapshot struct {
	Path       string
	Device     string
	Transport  string
	Mode       string
	Format     uint16
	Channels   byte
	Sampling   uint32
	CodecID    uint16
	Volume     uint16
	SoftVolume bool
}

// PCMs returns a full snapshot of every open-or-closed PCM across every
// Adapter/Device/Transport currently registered, the backing data for
// Manager1.GetPCMs (spec §4.7).
func (g *Graph) PCMs() []Snapshot {
	var out []Snapshot
	for _, a := range g.Adapters() {
		for _, d := range a.Devices() {
			for _, t := range d.Transports() {
				out = append(out, transportSnapshots(a, d, t)...)
			}
		}
	}
	return out
}

func transportSnapshots(a *Adapter, d *Device, t *Transport) []Snapshot {
	var out []Snapshot
	addPCM := func(p *PCM, mode string) {
		if p == nil {
			return
		}
		out = append(out, Snapshot{
			Path:      t.Path + "/" + mode,
			Device:    deviceObjectPath(a.ID, d.Address),
			Transport: t.Profile.String(),
			Mode:      mode,
			Format:    uint16(p.Format),
			Channels:  byte(p.Channels),
			Sampling:   uint32(p.Sampling),
			CodecID:    codecID(t.Codec),
			Volume:     uint16(p.Volume),
			SoftVolume: p.SoftVolume,
		})
	}
	addPCM(t.PCM, t.Profile.String())
	addPCM(t.Spk, "sink")
	addPCM(t.Mic, "source")
	return out
}

// codecID maps a codec name onto the PCM1.Codec wire value (spec §6/E2/E5:
// "Codec=0x0000 (SBC)"; "Codec=0x0001"/"0x0002" for CVSD/mSBC).
func codecID(name config.CodecName) uint16 {
	switch name {
	case config.CodecSBC:
		return 0x0000
	case config.CodecCVSD:
		return 0x0001
	case config.CodecMSBC:
		return 0x0002
	case config.CodecAAC:
		return 0x0003
	case config.CodecAptX:
		return 0x0004
	case config.CodecLDAC:
		return 0x0005
	case config.CodecMP3:
		return 0x0006
	default:
		return 0xFFFF
	}
}

func deviceObjectPath(adapterID int, addr [6]byte) string {
	const hex = "0123456789ABCDEF"
	b := make([]byte, 0, 17)
	for i, o := range addr {
		if i > 0 {
			b = append(b, '_')
		}
		b = append(b, hex[o>>4], hex[o&0xF])
	}
	_ = adapterID
	return "dev_" + string(b)
}
