// SPDX-License-Identifier: AGPL-3.0-or-later
package hci

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	ErrClosed = errors.New("hci: socket closed")
)

// Socket is a raw Bluetooth SCO socket: either a listening socket owned by
// the per-adapter dispatcher (internal/sco), or an accepted per-link
// socket owned by a transport's I/O thread.
type Socket struct {
	fd     int
	closed bool
}

// ListenSCO opens a listening SCO socket bound to the local adapter
// identified by bdaddr, with BT_DEFER_SETUP enabled so Accept returns
// before any audio flows — the dispatcher completes setup explicitly
// (spec §4.4 step 3).
func ListenSCO(bdaddr [6]byte) (*Socket, error) {
	fd, err := unix.Socket(afBluetooth, unix.SOCK_SEQPACKET, btProtoSCO)
	if err != nil {
		return nil, fmt.Errorf("hci: socket: %w", err)
	}
	s := &Socket{fd: fd}

	addr := sockaddrSCO{Family: afBluetooth, Addr: bdaddr}
	if err := bindSCO(fd, &addr); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("hci: bind: %w", err)
	}
	if err := s.SetDeferSetup(true); err != nil {
		_ = s.Close()
		return nil, err
	}
	const backlog = 10
	if err := unix.Listen(fd, backlog); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("hci: listen: %w", err)
	}
	return s, nil
}

// Accept blocks until a remote SCO connection arrives, returning the
// per-link socket and the remote device address.
func (s *Socket) Accept() (*Socket, [6]byte, error) {
	var addr sockaddrSCO
	addrlen := uint32(unsafe.Sizeof(addr))
	nfd, _, errno := unix.Syscall(unix.SYS_ACCEPT, uintptr(s.fd),
		uintptr(unsafe.Pointer(&addr)), uintptr(unsafe.Pointer(&addrlen)))
	if errno != 0 {
		return nil, [6]byte{}, fmt.Errorf("hci: accept: %w", errno)
	}
	return &Socket{fd: int(nfd)}, addr.Addr, nil
}

// CompleteDeferredSetup issues the one-byte read BT_DEFER_SETUP requires to
// let audio start flowing on an accepted link (spec §4.4 step 3).
func (s *Socket) CompleteDeferredSetup() error {
	buf := make([]byte, 1)
	_, err := unix.Read(s.fd, buf)
	if err != nil {
		return fmt.Errorf("hci: complete deferred setup: %w", err)
	}
	return nil
}

// SetDeferSetup toggles BT_DEFER_SETUP on the socket.
func (s *Socket) SetDeferSetup(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := unix.SetsockoptInt(s.fd, solBluetooth, btDeferSetup, v); err != nil {
		return fmt.Errorf("hci: set defer setup: %w", err)
	}
	return nil
}

// SetVoiceSetting configures BT_VOICE transparent mode (mSBC) or the
// default CVSD 16-bit mode, per spec §4.4 step 3 ("if the negotiated codec
// on that transport is mSBC, set BT_VOICE to transparent mode").
func (s *Socket) SetVoiceSetting(transparent bool) error {
	setting := uint16(btVoiceCVSD16Bit)
	if transparent {
		setting = btVoiceTransparent
	}
	if err := unix.SetsockoptInt(s.fd, solBluetooth, btVoice, int(setting)); err != nil {
		return fmt.Errorf("hci: set voice setting: %w", err)
	}
	return nil
}

// MTU reads the negotiated read/write MTU for this link (spec §3: "read/write
// MTU obtained after connect").
func (s *Socket) MTU() (int, error) {
	var opts scoOptions
	n := unsafe.Sizeof(opts)
	if err := getsockoptSCO(s.fd, &opts, uintptr(n)); err != nil {
		return 0, fmt.Errorf("hci: get sco options: %w", err)
	}
	return int(opts.MTU), nil
}

func (s *Socket) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	if err != nil {
		return n, fmt.Errorf("hci: read: %w", err)
	}
	return n, nil
}

func (s *Socket) Write(p []byte) (int, error) {
	n, err := unix.Write(s.fd, p)
	if err != nil {
		return n, fmt.Errorf("hci: write: %w", err)
	}
	return n, nil
}

func (s *Socket) Fd() int { return s.fd }

func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := unix.Close(s.fd); err != nil {
		return fmt.Errorf("hci: close: %w", err)
	}
	return nil
}

func bindSCO(fd int, addr *sockaddrSCO) error {
	_, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(fd),
		uintptr(unsafe.Pointer(addr)), unsafe.Sizeof(*addr))
	if errno != 0 {
		return errno
	}
	return nil
}

func getsockoptSCO(fd int, opts *scoOptions, optlen uintptr) error {
	_, _, errno := unix.Syscall6(unix.SYS_GETSOCKOPT, uintptr(fd), uintptr(solSCO), 0,
		uintptr(unsafe.Pointer(opts)), uintptr(unsafe.Pointer(&optlen)), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
