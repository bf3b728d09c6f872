// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rpc implements the HTTP method surface spec §4.7/§6 describes as
// a D-Bus interface (Manager1/PCM1/RFCOMM1), adapted onto a gin.Engine the
// way DMRHub's internal/http/server.go builds its router.
package rpc

import (
	"log/slog"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/btaudio/btaudiod/internal/a2dpio"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/btaudio/btaudiod/internal/rpcbus"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	rateLimitWindow = time.Minute
	rateLimitHits   = 240
)

// Server bundles the dependencies every handler needs.
type Server struct {
	Config       *config.Config
	Graph        *graph.Graph
	Bus          *rpcbus.Bus
	Codecs       CodecFactory
	A2DPRegistry *a2dpio.Registry
	Logger       *slog.Logger
}

// NewRouter builds the gin.Engine serving the Manager1/PCM1/RFCOMM1 method
// surface plus the /org/bluealsa/events websocket relay and /status.
func NewRouter(s *Server) *gin.Engine {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	if s.Config.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("btaudiod-rpc"))
	}

	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  rateLimitWindow,
		Limit: rateLimitHits,
	})
	r.Use(ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: rateLimitExceeded,
		KeyFunc:      func(c *gin.Context) string { return c.ClientIP() },
	}))

	s.registerRoutes(r)
	return r
}

func rateLimitExceeded(c *gin.Context, info ratelimit.Info) {
	c.JSON(429, gin.H{"error": "rate limit exceeded", "reset": info.ResetTime})
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/status", s.handleStatus)

	manager := r.Group("/org/bluealsa")
	manager.GET("/pcms", s.handleGetPCMs)

	pcm := r.Group("/org/bluealsa/:hci/:device/:transport/:mode")
	pcm.POST("/open", s.handlePCMOpen)
	pcm.GET("/codecs", s.handleGetCodecs)
	pcm.POST("/select-codec", s.handleSelectCodec)
	pcm.GET("/properties", s.handleGetPCMProperties)
	pcm.PATCH("/properties", s.handleSetPCMProperties)

	rfcomm := r.Group("/org/bluealsa/:hci/:device/rfcomm")
	rfcomm.POST("/open", s.handleRFCOMMOpen)
	rfcomm.GET("/properties", s.handleGetRFCOMMProperties)

	r.GET("/org/bluealsa/events", s.handleEventsWebsocket)
}
