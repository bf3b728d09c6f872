// SPDX-License-Identifier: AGPL-3.0-or-later
package rpc

import (
	"bufio"
	"fmt"
	"net"
	"strings"

	"github.com/btaudio/btaudiod/internal/a2dpio"
	"github.com/btaudio/btaudiod/internal/graph"
)

// serveControlSocket implements the PCM control-socket protocol (spec §6):
// one text command per line ("Drain"/"Drop"/"Pause"/"Resume"), answered
// with "OK" or "ERR:<text>". It accepts exactly one client connection per
// PCM, same lifecycle as the audio FIFO it's paired with.
func (s *Server) serveControlSocket(tr *graph.Transport, pcm *graph.PCM, ln net.Listener) {
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		cmd := strings.TrimSpace(reader.Text())
		if cmd == "" {
			continue
		}
		reply := s.dispatchControlCommand(tr, pcm, cmd)
		if _, err := fmt.Fprintln(conn, reply); err != nil {
			return
		}
	}
}

func (s *Server) dispatchControlCommand(tr *graph.Transport, pcm *graph.PCM, cmd string) string {
	if tr.Profile.IsSCO() {
		return "ERR:NotSupported"
	}

	sig, ok := a2dpioSignalFor(cmd)
	if !ok {
		return "ERR:InvalidArguments"
	}

	if sig == a2dpio.SignalDrain {
		pcm.BeginDrain()
	}

	if s.A2DPRegistry == nil || !s.A2DPRegistry.Send(tr.Path, sig) {
		return "ERR:NotConnected"
	}
	return "OK"
}

func a2dpioSignalFor(cmd string) (a2dpio.Signal, bool) {
	switch cmd {
	case "Drain":
		return a2dpio.SignalDrain, true
	case "Drop":
		return a2dpio.SignalDrop, true
	case "Pause":
		return a2dpio.SignalPause, true
	case "Resume":
		return a2dpio.SignalResume, true
	default:
		return 0, false
	}
}
