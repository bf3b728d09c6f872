// SPDX-License-Identifier: AGPL-3.0-or-later
package hci

import (
	"bytes"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// AdapterInfo is what ListAdapters reports for one local controller —
// enough for internal/graph to seed an Adapter object (spec §3: "numeric
// id, human name, device-address, chip vendor id").
type AdapterInfo struct {
	ID      int
	Name    string
	Address [6]byte
	Vendor  VendorID
}

// VendorID identifies the controller chipset, used to decide whether the
// Broadcom SCO-routing probe applies (spec §4.4).
type VendorID int

const (
	VendorUnknown VendorID = iota
	VendorBroadcom
)

// ListAdapters enumerates every HCI device the kernel currently knows
// about, via the HCIGETDEVLIST/HCIGETDEVINFO ioctls against a raw HCI
// control socket — the same "open control fd, ioctl for a typed struct"
// shape as Daedaluz-gousb's GetDriver/GetConnectInfo.
func ListAdapters() ([]AdapterInfo, error) {
	ctl, err := unix.Socket(afBluetooth, unix.SOCK_RAW, btProtoHCI)
	if err != nil {
		return nil, fmt.Errorf("hci: control socket: %w", err)
	}
	defer unix.Close(ctl)

	var list hciDevListReq
	list.devNum = maxHCIDevices
	if err := ioctl(ctl, hciGetDeviceList, unsafe.Pointer(&list)); err != nil {
		return nil, fmt.Errorf("hci: get device list: %w", err)
	}

	out := make([]AdapterInfo, 0, list.devNum)
	for i := uint16(0); i < list.devNum && i < maxHCIDevices; i++ {
		id := int(list.devReq[i].devID)
		info, err := deviceInfo(ctl, id)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func deviceInfo(ctl int, id int) (AdapterInfo, error) {
	var raw hciDevInfo
	raw.DevID = uint16(id)
	if err := ioctl(ctl, hciGetDeviceInfo, unsafe.Pointer(&raw)); err != nil {
		return AdapterInfo{}, fmt.Errorf("hci: get device info %d: %w", id, err)
	}
	name := string(bytes.TrimRight(raw.Name[:], "\x00"))
	return AdapterInfo{
		ID:      id,
		Name:    name,
		Address: raw.BDAddr,
		Vendor:  detectVendor(raw.BDAddr),
	}, nil
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
