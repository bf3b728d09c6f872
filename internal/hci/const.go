// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hci wraps the small set of raw Bluetooth socket primitives the
// transport engine needs: adapter enumeration, SCO socket accept/connect,
// MTU queries, and the one-shot Broadcom SCO-routing fix. It does not
// reimplement the HCI/L2CAP/SCO protocols themselves (spec Non-goals) —
// every operation here is a thin typed wrapper around a kernel ioctl or
// sockopt, in the same "raw syscall behind a small typed method" shape
// Daedaluz-gousb's usbfs package uses for USB ioctls.
package hci

// Bluetooth address family/protocol/sockopt constants. These are not
// exposed by golang.org/x/sys/unix (it carries the generic socket/ioctl
// surface, not the Bluetooth-specific numbers defined in
// <bluetooth/bluetooth.h> and <bluetooth/sco.h>), so they're declared here
// exactly as upstream defines them.
const (
	afBluetooth = 31

	btProtoHCI = 1
	btProtoSCO = 2

	solBluetooth = 274
	solSCO       = 17

	solHCI   = 0
	hciDevUp = 201

	// getdevlist/getdevinfo ioctl numbers (<bluetooth/hci.h>).
	hciGetDeviceList = 0x800448d2
	hciGetDeviceInfo = 0x800448d3

	// BT_VOICE / BT_DEFER_SETUP are SOL_BLUETOOTH-level sockopts shared by
	// every Bluetooth socket type, not SCO-specific despite living next to
	// sco.h in the kernel headers.
	btVoice           = 11
	btDeferSetup      = 7
	btVoiceCVSD16Bit  = 0x0060
	btVoiceTransparent = 0x0003

	maxHCIDevices = 16
)

// scoOptions mirrors struct sco_options from <bluetooth/sco.h>: MTU lives
// at offset 0 as a uint16, the rest (handle, link quality) this daemon
// never reads.
type scoOptions struct {
	MTU         uint16
	handle      uint16
	reserved    uint8
	linkQuality uint8
}

// sockaddrSCO mirrors struct sockaddr_sco.
type sockaddrSCO struct {
	Family uint16
	Addr   [6]byte
}

// hciDevReq mirrors struct hci_dev_req used by HCIGETDEVLIST.
type hciDevListReq struct {
	devNum uint16
	devReq [maxHCIDevices]hciDevReqEntry
}

type hciDevReqEntry struct {
	devID uint16
	opt   uint32
}

// hciDevInfo mirrors struct hci_dev_info from <bluetooth/hci.h>, trimmed to
// the fields this daemon reads.
type hciDevInfo struct {
	DevID     uint16
	Name      [8]byte
	BDAddr    [6]byte
	Flags     uint32
	Type      uint8
	Features  [8]byte
	PktType   uint32
	LinkPolicy uint32
	LinkMode  uint32
	ACLMtu    uint16
	ACLPkts   uint16
	SCOMtu    uint16
	SCOPkts   uint16
	Stat      hciDevStats
}

type hciDevStats struct {
	ErrRx, ErrTx, CmdTx, EvtRx, AclTx, AclRx, ScoTx, ScoRx, ByteRx, ByteTx uint32
}
