// SPDX-License-Identifier: AGPL-3.0-or-later
package pprof

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/btaudio/btaudiod/internal/config"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const readTimeout = 3 * time.Second

// CreatePProfServer blocks serving the pprof debug endpoints when enabled.
func CreatePProfServer(cfg *config.Config) {
	if !cfg.PProf.Enabled {
		return
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	if cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("pprof"))
	}

	pprof.Register(r)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.PProf.Bind, cfg.PProf.Port),
		Handler:           r,
		ReadHeaderTimeout: readTimeout,
	}
	slog.Info("pprof server listening", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		slog.Error("pprof server stopped", "error", err)
	}
}
