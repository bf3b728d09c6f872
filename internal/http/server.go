// SPDX-License-Identifier: AGPL-3.0-or-later
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defTimeout        = 10 * time.Second
	debugWriteTimeout = 60 * time.Second
)

var (
	ErrClosed = errors.New("server closed")
	ErrFailed = errors.New("failed to start server")
)

// Server wraps an http.Server with the daemon's Start/Stop lifecycle
// convention: Start blocks until the listener exits, Stop triggers a
// graceful shutdown and waits for Start's goroutine to notice.
type Server struct {
	*http.Server
	shutdownChannel chan bool
}

// New builds a Server bound to addr serving handler. debug widens the
// write timeout to accommodate pprof's blocking profile endpoints.
func New(addr string, handler http.Handler, debug bool) *Server {
	writeTimeout := defTimeout
	if debug {
		writeTimeout = debugWriteTimeout
	}
	s := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  defTimeout,
		WriteTimeout: writeTimeout,
	}
	s.SetKeepAlivesEnabled(false)
	return &Server{Server: s, shutdownChannel: make(chan bool, 1)}
}

func (s *Server) Start() error {
	g := new(errgroup.Group)
	g.Go(func() error {
		err := s.ListenAndServe()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, http.ErrServerClosed):
			s.shutdownChannel <- true
			return ErrClosed
		default:
			slog.Error("failed to start HTTP server", "error", err)
			return ErrFailed
		}
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("http server %s: %w", s.Addr, err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	const timeout = 5 * time.Second
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
		return
	}
	<-s.shutdownChannel
}
