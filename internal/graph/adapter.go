// SPDX-License-Identifier: AGPL-3.0-or-later
package graph

import (
	"sync"

	"github.com/btaudio/btaudiod/internal/hci"
	"github.com/puzpuzpuz/xsync/v4"
)

// Adapter represents a single local Bluetooth controller (spec §3).
// Destroying it (refcount to zero) joins its SCO dispatcher.
type Adapter struct {
	mu sync.Mutex

	ID      int
	Name    string
	Address [6]byte
	Vendor  hci.VendorID

	devices *xsync.Map[[6]byte, *Device]

	ref *Ref
}

// NewAdapter constructs an Adapter owned by the caller (refcount 1);
// onZero should join the SCO dispatcher (spec §3: "destroyed when refcount
// hits zero, which joins the SCO dispatcher").
func NewAdapter(info hci.AdapterInfo, onZero func()) *Adapter {
	a := &Adapter{
		ID:      info.ID,
		Name:    info.Name,
		Address: info.Address,
		Vendor:  info.Vendor,
		devices: xsync.NewMap[[6]byte, *Device](),
	}
	a.ref = NewRef(onZero)
	return a
}

func (a *Adapter) Ref() *Ref { return a.ref }

func (a *Adapter) HCIName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Name
}

// Device returns the Device for addr, creating it (with refcount 1) if it
// has never been seen on this adapter before.
func (a *Adapter) Device(addr [6]byte, onZero func()) *Device {
	d, _ := a.devices.LoadOrCompute(addr, func() (*Device, bool) {
		return NewDevice(addr, a.ID, onZero), false
	})
	return d
}

func (a *Adapter) LookupDevice(addr [6]byte) (*Device, bool) {
	return a.devices.Load(addr)
}

// RemoveDevice drops a Device from the table once its refcount reaches
// zero; the caller's onZero callback is responsible for actually running
// this after its own teardown completes.
func (a *Adapter) RemoveDevice(addr [6]byte) {
	a.devices.Delete(addr)
}

// Devices returns a snapshot of every Device currently known.
func (a *Adapter) Devices() []*Device {
	var out []*Device
	a.devices.Range(func(_ [6]byte, d *Device) bool {
		out = append(out, d)
		return true
	})
	return out
}
