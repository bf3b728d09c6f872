// SPDX-License-Identifier: AGPL-3.0-or-later
package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/btaudio/btaudiod/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const bufferSize = 1024

// Message is a single websocket frame, kept symmetric with gorilla's own
// (messageType, payload) pair so callers don't need to import gorilla
// directly.
type Message struct {
	Type int
	Data []byte
}

// Writer lets a Handler push frames to its own connection without holding
// the raw *websocket.Conn (and therefore without risking an unsynchronized
// concurrent write, which gorilla's Conn does not tolerate).
type Writer interface {
	WriteMessage(messageType int, data []byte) error
}

// Handler reacts to the lifecycle of one relayed connection. internal/rpc
// implements this to stream bus events (PCMAdded, PropertiesChanged, ...)
// to subscribed signal clients.
type Handler interface {
	OnConnect(ctx context.Context, r *http.Request, w Writer)
	OnMessage(ctx context.Context, r *http.Request, w Writer, data []byte, messageType int)
	OnDisconnect(ctx context.Context, r *http.Request)
}

type mutexWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *mutexWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(messageType, data) //nolint:wrapcheck
}

// CreateHandler upgrades the request and runs h for the lifetime of the
// connection. Every connection gets its own goroutine reading frames and
// its own mutexWriter, so concurrent upgrades never share mutable state.
func CreateHandler(_ *config.Config, h Handler) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  bufferSize,
		WriteBufferSize: bufferSize,
		// This is an internal control surface bound to a local address by
		// default; every origin is accepted rather than maintaining a
		// browser-facing allowlist.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		defer func() {
			if err := conn.Close(); err != nil {
				slog.Error("websocket close failed", "error", err)
			}
		}()

		ctx := c.Request.Context()
		w := &mutexWriter{conn: conn}

		h.OnConnect(ctx, c.Request, w)
		defer h.OnDisconnect(ctx, c.Request)

		readErr := make(chan struct{}, 1)
		go func() {
			for {
				t, msg, err := conn.ReadMessage()
				if err != nil {
					readErr <- struct{}{}
					return
				}
				h.OnMessage(ctx, c.Request, w, msg, t)
			}
		}()

		select {
		case <-ctx.Done():
		case <-readErr:
		}
	}
}
