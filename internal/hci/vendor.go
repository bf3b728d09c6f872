// SPDX-License-Identifier: AGPL-3.0-or-later
package hci

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// broadcomOUIs are the IEEE OUI prefixes (first 3 octets, in the usual
// written order; detectVendor matches them against the last three address
// bytes in reverse, since the address is stored on-wire least-significant
// byte first) Broadcom/Cypress assigns its Bluetooth controllers, enough to
// decide whether the SCO-routing probe below applies without needing a
// USB/SDIO vendor-ID lookup path.
var broadcomOUIs = [][3]byte{
	{0x00, 0x1A, 0x7D},
	{0x3C, 0x15, 0xC2},
	{0xAC, 0x22, 0x0B},
}

func detectVendor(addr [6]byte) VendorID {
	for _, oui := range broadcomOUIs {
		if addr[5] == oui[0] && addr[4] == oui[1] && addr[3] == oui[2] {
			return VendorBroadcom
		}
	}
	return VendorUnknown
}

const scoRoutingTransport = "transport"

func scoRoutingPath(adapterID int) string {
	return fmt.Sprintf("/sys/kernel/debug/bluetooth/hci%d/sco_routing", adapterID)
}

// FixBroadcomSCORouting reads a Broadcom controller's current SCO PCM
// routing debugfs entry and, if it isn't already "transport", rewrites it —
// the one-shot startup probe spec §4.4 describes: "without this fix audio
// never reaches userspace on those chips." It is a no-op (not an error) on
// kernels without the debugfs entry, since not every Broadcom controller
// exposes it under every driver.
func FixBroadcomSCORouting(adapterID int) (changed bool, err error) {
	return fixSCORoutingAtPath(scoRoutingPath(adapterID))
}

func fixSCORoutingAtPath(path string) (changed bool, err error) {
	current, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("hci: read sco routing: %w", err)
	}
	if strings.TrimSpace(string(bytes.TrimRight(current, "\n"))) == scoRoutingTransport {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(scoRoutingTransport), 0o644); err != nil {
		return false, fmt.Errorf("hci: write sco routing: %w", err)
	}
	return true, nil
}
