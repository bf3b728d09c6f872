// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/engine"
	"github.com/btaudio/btaudiod/internal/logging"
	"github.com/btaudio/btaudiod/internal/metrics"
	"github.com/btaudio/btaudiod/internal/pprof"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "btaudiod",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	config.Flags(cmd.Flags())
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("btaudiod - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	setupLogger(cfg)
	logger := slog.Default()

	cleanup, err := setupTracing(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}

	startBackgroundServices(cfg)

	m := metrics.NewMetrics()

	eng, err := engine.New(ctx, cfg, logger, m)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	setupReloadHandler(cmd, eng)
	setupShutdownHandlers(eng, cleanup)

	return nil
}

// setupLogger installs internal/logging's tint-backed slog.Logger as the
// package default so every component that calls slog.Default() picks it up.
func setupLogger(cfg *config.Config) {
	slog.SetDefault(logging.New(cfg))
}

// setupTracing initializes OpenTelemetry tracing if configured. When
// tracing is not configured it returns a no-op cleanup function.
func setupTracing(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	return initTracer(cfg)
}

// startBackgroundServices starts the metrics and pprof servers, each on
// its own bind address so they can be firewalled off independently of the
// RPC surface.
func startBackgroundServices(cfg *config.Config) {
	go func() {
		if err := metrics.CreateMetricsServer(cfg); err != nil {
			slog.Error("failed to start metrics server", "error", err)
		}
	}()
	go pprof.CreatePProfServer(cfg)
}

// setupReloadHandler wires SIGHUP to the spec §9 reload path: only the
// default A2DP codec and soft-volume-default survive a running engine, so
// SIGHUP is deliberately left out of shutdown.Listen below and handled on
// its own signal channel instead. Each SIGHUP re-runs config.Load (so an
// edited --config file is picked up) and applies the two defaults.
func setupReloadHandler(cmd *cobra.Command, eng *engine.Engine) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	go func() {
		for range sigCh {
			slog.Info("reloading defaults on SIGHUP")
			fresh, err := config.Load(cmd.Flags())
			if err != nil {
				slog.Error("failed to reload config", "error", err)
				continue
			}
			eng.UpdateDefaults(fresh.DefaultA2DPCodec, fresh.SoftVolumeDefault)
		}
	}()
}

// setupShutdownHandlers registers the engine teardown with ztrue/shutdown,
// the way the teacher's cmd/root.go does, and blocks the calling goroutine
// until a shutdown signal arrives and teardown completes.
func setupShutdownHandlers(eng *engine.Engine, cleanup func(context.Context) error) {
	stop := func(sig os.Signal) {
		slog.Error("shutting down due to signal", "signal", sig)

		const timeout = 10 * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		eng.Stop(shutdownCtx)

		if cleanup != nil {
			if err := cleanup(shutdownCtx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}

		slog.Info("shutdown complete")
		os.Exit(0)
	}

	shutdown.AddWithParam(stop)
	shutdown.Listen(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
}

func initTracer(cfg *config.Config) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "btaudiod"),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resources: %w", err)
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)
	return exporter.Shutdown, nil
}
