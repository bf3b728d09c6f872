// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sco implements the per-adapter SCO connection dispatcher and the
// per-transport SCO I/O state machine (spec §4.4-4.5).
package sco

import (
	"context"
	"errors"
	"log/slog"

	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/btaudio/btaudiod/internal/hci"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sys/unix"
)

var tracer = otel.Tracer("github.com/btaudio/btaudiod/internal/sco")

func closeFD(fd int) {
	_ = unix.Close(fd)
}

// Dispatcher runs one per Adapter: a blocking accept loop on a listening
// SCO socket that resolves each inbound link to its owning Transport and
// installs the new bt_fd (spec §4.4).
type Dispatcher struct {
	Adapter  *graph.Adapter
	Graph    *graph.Graph
	Registry *Registry
	Logger   *slog.Logger

	listener *hci.Socket
	stopped  chan struct{}
}

// NewDispatcher opens the listening SCO socket for adapter and runs the
// Broadcom routing probe once, up front (spec §4.4: "For Broadcom
// controllers the dispatcher runs a one-shot probe at startup").
func NewDispatcher(a *graph.Adapter, g *graph.Graph, reg *Registry, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if a.Vendor == hci.VendorBroadcom {
		changed, err := hci.FixBroadcomSCORouting(a.ID)
		if err != nil {
			logger.Warn("broadcom sco routing probe failed", "adapter", a.HCIName(), "error", err)
		} else if changed {
			logger.Info("rewrote broadcom sco routing to transport", "adapter", a.HCIName())
		}
	}

	l, err := hci.ListenSCO(a.Address)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		Adapter:  a,
		Graph:    g,
		Registry: reg,
		Logger:   logger,
		listener: l,
		stopped:  make(chan struct{}),
	}, nil
}

// Run blocks accepting inbound SCO links until Stop is called (spec §5:
// "The SCO dispatcher suspends in accept").
func (d *Dispatcher) Run() {
	for {
		sock, remote, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.stopped:
				return
			default:
			}
			d.Logger.Warn("sco accept failed", "adapter", d.Adapter.HCIName(), "error", err)
			continue
		}
		go d.handleAccept(sock, remote)
	}
}

// Stop closes the listening socket, unblocking Run.
func (d *Dispatcher) Stop() error {
	close(d.stopped)
	return d.listener.Close()
}

var errNoDevice = errors.New("sco: remote address has no known device")
var errNoTransport = errors.New("sco: device has no SCO transport")

// handleAccept implements spec §4.4 steps 1-5 for one accepted link. It is
// traced so a slow AT/SDP round trip on the remote side is visible next to
// the RPC spans that requested the connection.
func (d *Dispatcher) handleAccept(sock *hci.Socket, remote [6]byte) {
	var span trace.Span
	_, span = tracer.Start(context.Background(), "sco.accept",
		trace.WithAttributes(attribute.String("adapter", d.Adapter.HCIName())))
	defer span.End()

	dev, ok := d.Adapter.LookupDevice(remote)
	if !ok {
		d.Logger.Warn("sco accept from unknown device", "remote", remote, "error", errNoDevice)
		_ = sock.Close()
		return
	}
	dev.Ref().Add()
	defer dev.Ref().Unref()

	tr, ok := resolveSCOTransport(dev)
	if !ok {
		d.Logger.Warn("sco accept with no owning transport", "remote", remote, "error", errNoTransport)
		_ = sock.Close()
		return
	}
	tr.Ref().Add()
	defer tr.Ref().Unref()

	if tr.Codec == config.CodecMSBC {
		if err := sock.SetVoiceSetting(true); err != nil {
			d.Logger.Warn("set voice setting failed", "error", err)
		}
	}
	if err := sock.CompleteDeferredSetup(); err != nil {
		d.Logger.Warn("complete deferred setup failed", "error", err)
		_ = sock.Close()
		return
	}

	mtu, err := sock.MTU()
	if err != nil {
		d.Logger.Warn("sco mtu query failed", "error", err)
	}
	tr.SetBTFD(sock.Fd(), mtu, closeFD)

	if d.Registry != nil {
		d.Registry.Ping(tr.Path)
	}
}

func resolveSCOTransport(dev *graph.Device) (*graph.Transport, bool) {
	for _, profile := range []graph.Profile{graph.ProfileHFPAG, graph.ProfileHFPHF, graph.ProfileHSPAG, graph.ProfileHSPHS} {
		if tr, ok := dev.TransportByProfile(profile); ok {
			return tr, true
		}
	}
	return nil, false
}
