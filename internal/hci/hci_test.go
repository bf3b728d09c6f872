// SPDX-License-Identifier: AGPL-3.0-or-later
package hci

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectVendorBroadcom(t *testing.T) {
	t.Parallel()
	addr := [6]byte{0x01, 0x02, 0x03, 0x7D, 0x1A, 0x00}
	assert.Equal(t, VendorBroadcom, detectVendor(addr))
}

func TestDetectVendorUnknown(t *testing.T) {
	t.Parallel()
	addr := [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	assert.Equal(t, VendorUnknown, detectVendor(addr))
}

func TestFixSCORoutingMissingFileIsNoop(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	changed, err := fixSCORoutingAtPath(filepath.Join(dir, "sco_routing"))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFixSCORoutingAlreadyTransport(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "sco_routing")
	require.NoError(t, os.WriteFile(path, []byte("transport\n"), 0o644))

	changed, err := fixSCORoutingAtPath(path)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFixSCORoutingRewritesWhenNotTransport(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "sco_routing")
	require.NoError(t, os.WriteFile(path, []byte("hci\n"), 0o644))

	changed, err := fixSCORoutingAtPath(path)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, scoRoutingTransport, string(got))
}

func TestScoRoutingPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/sys/kernel/debug/bluetooth/hci0/sco_routing", scoRoutingPath(0))
}
