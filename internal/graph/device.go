// SPDX-License-Identifier: AGPL-3.0-or-later
package graph

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Device is one remote peer ever seen on an Adapter (spec §3). Its
// back-reference to the owning Adapter is weak in the ownership sense —
// Device does not keep its Adapter alive, it only stores the id.
type Device struct {
	mu sync.Mutex

	Address   [6]byte
	Name      string
	AdapterID int

	RFCOMMFeatures uint32
	XAPLVendor     string
	Battery        byte

	transports *xsync.Map[string, *Transport]

	ref *Ref
}

// NewDevice constructs a Device owned by the caller (refcount 1).
func NewDevice(addr [6]byte, adapterID int, onZero func()) *Device {
	d := &Device{
		Address:    addr,
		AdapterID:  adapterID,
		transports: xsync.NewMap[string, *Transport](),
	}
	d.ref = NewRef(onZero)
	return d
}

func (d *Device) Ref() *Ref { return d.ref }

// AddTransport registers a Transport under its RPC path.
func (d *Device) AddTransport(t *Transport) {
	d.transports.Store(t.Path, t)
}

// RemoveTransport drops a Transport from the table. The caller still owns
// releasing its own reference to t.
func (d *Device) RemoveTransport(path string) {
	d.transports.Delete(path)
}

func (d *Device) Transport(path string) (*Transport, bool) {
	return d.transports.Load(path)
}

// Transports returns a snapshot of every Transport currently registered.
func (d *Device) Transports() []*Transport {
	var out []*Transport
	d.transports.Range(func(_ string, t *Transport) bool {
		out = append(out, t)
		return true
	})
	return out
}

// TransportByProfile finds the active Transport for a given profile, used
// by the SCO dispatcher to resolve "the Device's current SCO Transport"
// (spec §4.4 step 2).
func (d *Device) TransportByProfile(profile Profile) (*Transport, bool) {
	var found *Transport
	d.transports.Range(func(_ string, t *Transport) bool {
		if t.Profile == profile {
			found = t
			return false
		}
		return true
	})
	return found, found != nil
}

func (d *Device) SetName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Name = name
}

func (d *Device) GetName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Name
}

// SetRFCOMMFeatures records the remote's +BRSF feature mask.
func (d *Device) SetRFCOMMFeatures(mask uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.RFCOMMFeatures = mask
}

func (d *Device) GetRFCOMMFeatures() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.RFCOMMFeatures
}

// SetXAPLVendor records the Apple accessory vendor string reported via the
// XAPL AT extension.
func (d *Device) SetXAPLVendor(vendor string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.XAPLVendor = vendor
}

func (d *Device) GetXAPLVendor() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.XAPLVendor
}

func (d *Device) GetBattery() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Battery
}

// SetBattery updates the XAPL-reported battery level, returning false if
// unchanged (same idempotence discipline as PCM.SetVolume).
func (d *Device) SetBattery(level byte) (changed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Battery == level {
		return false
	}
	d.Battery = level
	return true
}
