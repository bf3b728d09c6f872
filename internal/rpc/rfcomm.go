// SPDX-License-Identifier: AGPL-3.0-or-later
package rpc

import (
	"context"
	"net"
	"os"
	"path/filepath"

	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/btaudio/btaudiod/internal/rfcomm"
	"github.com/btaudio/btaudiod/internal/rpcerr"
	"github.com/gin-gonic/gin"
	"golang.org/x/sys/unix"
)

func (s *Server) resolveDevice(c *gin.Context) (*graph.Device, bool) {
	d, ok := s.Graph.FindDevice(c.Param("hci"), c.Param("device"))
	if !ok {
		writeError(c, rpcerr.New(rpcerr.NotConnected, "device not found"))
		return nil, false
	}
	return d, true
}

// rfcommOpenResponse hands back a Unix domain socket path the caller
// dials to exchange AT-command traffic, the same fd-to-filesystem-path
// substitution handlePCMOpen uses for PCM1.Open.
type rfcommOpenResponse struct {
	SocketPath string `json:"socketPath"`
}

// handleRFCOMMOpen spins up a forwarding Unix socket: every byte written
// by the dialing client is fed into an rfcomm.Session as if it arrived
// from the remote TTY, and every Session write is relayed back.
func (s *Server) handleRFCOMMOpen(c *gin.Context) {
	dev, ok := s.resolveDevice(c)
	if !ok {
		return
	}

	dir := filepath.Join(s.Config.RuntimeDir, "rfcomm", c.Param("hci"), c.Param("device"))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		writeError(c, rpcerr.New(rpcerr.FatalIO, "create runtime dir: %v", err))
		return
	}
	sockPath := filepath.Join(dir, "rfcomm")
	_ = os.Remove(sockPath)

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		writeError(c, rpcerr.New(rpcerr.FatalIO, "listen rfcomm socket: %v", err))
		return
	}

	path := c.Param("hci") + "/" + c.Param("device") + "/rfcomm"
	go s.acceptRFCOMM(dev, path, ln)

	c.JSON(200, rfcommOpenResponse{SocketPath: sockPath})
}

func (s *Server) acceptRFCOMM(dev *graph.Device, path string, ln net.Listener) {
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	sess := rfcomm.NewSession(dev, conn, s.Logger)
	sess.Forward = func(u rfcomm.Unsolicited) {
		_ = s.Bus.PublishRFCOMMIndication(context.Background(), path, u.Raw)
	}
	sess.NewCodecAdapter = func(name config.CodecName) (codec.Adapter, error) {
		factory := s.Codecs
		if factory == nil {
			factory = codec.New
		}
		return factory(name, codec.Params{})
	}
	sess.TeardownSCO = func(tr *graph.Transport) {
		tr.SetBTFD(-1, 0, func(prev int) { _ = unix.Close(prev) })
	}
	_ = sess.Run()
}

type rfcommProperties struct {
	Features uint32 `json:"features"`
	Battery  byte   `json:"battery"`
	Vendor   string `json:"vendor"`
}

func (s *Server) handleGetRFCOMMProperties(c *gin.Context) {
	dev, ok := s.resolveDevice(c)
	if !ok {
		return
	}
	c.JSON(200, rfcommProperties{
		Features: dev.GetRFCOMMFeatures(),
		Battery:  dev.GetBattery(),
		Vendor:   dev.GetXAPLVendor(),
	})
}
