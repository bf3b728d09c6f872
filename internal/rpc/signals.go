// SPDX-License-Identifier: AGPL-3.0-or-later
package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	wsgin "github.com/btaudio/btaudiod/internal/http/websocket"
	"github.com/btaudio/btaudiod/internal/rpcbus"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// signalRelay implements wsgin.Handler, forwarding every rpcbus.Event to
// one connected client as a JSON frame (spec §4.7: "PCMAdded precedes any
// property-change signal ... PCMRemoved is always the last signal").
type signalRelay struct {
	bus *rpcbus.Bus
	sub *rpcbus.Subscription
}

func newSignalRelay(bus *rpcbus.Bus) *signalRelay {
	return &signalRelay{bus: bus}
}

func (h *signalRelay) OnConnect(ctx context.Context, _ *http.Request, w wsgin.Writer) {
	h.sub = h.bus.Subscribe(ctx)
	go func() {
		for ev := range h.sub.Events() {
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := w.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()
}

func (h *signalRelay) OnMessage(context.Context, *http.Request, wsgin.Writer, []byte, int) {
	// the signal channel is server-to-client only; inbound frames are ignored.
}

func (h *signalRelay) OnDisconnect(context.Context, *http.Request) {
	if h.sub != nil {
		h.sub.Close()
	}
}

func (s *Server) handleEventsWebsocket(c *gin.Context) {
	wsgin.CreateHandler(s.Config, newSignalRelay(s.Bus))(c)
}
