// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine wires every other internal package into the running
// daemon: it discovers adapters, builds the object graph, starts one SCO
// dispatcher per adapter, serves the RPC surface, and runs the scheduled
// maintenance jobs (spec §4.4/§5/§9), the way the teacher's cmd/root.go
// wires servers/hub/kv/pubsub together.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/btaudio/btaudiod/internal/a2dpio"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/btaudio/btaudiod/internal/hci"
	nethttp "github.com/btaudio/btaudiod/internal/http"
	"github.com/btaudio/btaudiod/internal/kv"
	"github.com/btaudio/btaudiod/internal/metrics"
	"github.com/btaudio/btaudiod/internal/pubsub"
	"github.com/btaudio/btaudiod/internal/rpc"
	"github.com/btaudio/btaudiod/internal/rpcbus"
	"github.com/btaudio/btaudiod/internal/sco"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sys/unix"
)

// Engine owns the daemon's live state: the object graph, the per-adapter
// SCO dispatchers, and the RPC surface serving it all (spec §3: "Graph is
// the root of the object graph").
type Engine struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Graph        *graph.Graph
	Bus          *rpcbus.Bus
	SCORegistry  *sco.Registry
	A2DPRegistry *a2dpio.Registry

	kvStore kv.KV
	ps      pubsub.PubSub

	dispatchers []*sco.Dispatcher
	rpcServer   *nethttp.Server
	scheduler   gocron.Scheduler
}

// New constructs an Engine and its dependency graph, but starts nothing
// running yet — call Start for that.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kvStore, err := kv.MakeKV(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: kv: %w", err)
	}

	ps, err := pubsub.MakePubSub(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: pubsub: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("engine: scheduler: %w", err)
	}

	e := &Engine{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		Graph:        graph.New(),
		Bus:          rpcbus.New(ps),
		SCORegistry:  sco.NewRegistry(),
		A2DPRegistry: a2dpio.NewRegistry(),
		kvStore:      kvStore,
		ps:           ps,
		scheduler:    scheduler,
	}
	return e, nil
}

// Start discovers adapters, brings up one SCO dispatcher per
// HFP/HSP-capable adapter, schedules maintenance jobs, and starts the RPC
// HTTP server on a background goroutine. It returns without waiting for the
// RPC listener to come up; everything keeps running until Stop.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.discoverAdapters(ctx); err != nil {
		return fmt.Errorf("engine: discover adapters: %w", err)
	}

	e.scheduleStaleTransportReap()
	e.scheduleDeviceStatePersistence(ctx)
	e.scheduler.Start()

	server := &rpc.Server{
		Config:       e.Config,
		Graph:        e.Graph,
		Bus:          e.Bus,
		A2DPRegistry: e.A2DPRegistry,
		Logger:       e.Logger,
	}
	router := rpc.NewRouter(server)
	addr := fmt.Sprintf("%s:%d", e.Config.RPC.Bind, e.Config.RPC.Port)
	e.rpcServer = nethttp.New(addr, router, e.Config.Debug)

	go func() {
		if err := e.rpcServer.Start(); err != nil {
			e.Logger.Error("rpc server stopped", "error", err)
		}
	}()

	if e.Metrics != nil {
		e.Metrics.Ready.Set(1)
	}
	e.Logger.Info("engine started", "rpc_addr", addr, "adapters", len(e.Graph.Adapters()))
	return nil
}

// Stop tears down every background goroutine the engine owns: the RPC
// server first, then the SCO dispatchers and the scheduler, then a final
// device-state flush before pubsub and kv are closed (spec §9: "destroying
// an Adapter joins its SCO dispatcher").
func (e *Engine) Stop(ctx context.Context) {
	if e.Metrics != nil {
		e.Metrics.Ready.Set(0)
	}
	if e.rpcServer != nil {
		e.rpcServer.Stop(ctx)
	}
	for _, d := range e.dispatchers {
		if err := d.Stop(); err != nil {
			e.Logger.Warn("sco dispatcher stop failed", "error", err)
		}
	}
	if err := e.scheduler.Shutdown(); err != nil {
		e.Logger.Warn("scheduler shutdown failed", "error", err)
	}
	e.PersistDeviceState(ctx)
	if err := e.ps.Close(); err != nil {
		e.Logger.Warn("pubsub close failed", "error", err)
	}
	if err := e.kvStore.Close(); err != nil {
		e.Logger.Warn("kv close failed", "error", err)
	}
}

// discoverAdapters enumerates every local HCI adapter (filtered by
// Config.AdapterFilter), registers it on the Graph, and brings up its SCO
// dispatcher when the configured profile set includes HFP or HSP.
func (e *Engine) discoverAdapters(ctx context.Context) error {
	infos, err := hci.ListAdapters()
	if err != nil {
		return err
	}

	needsSCO := e.Config.HasAnyProfile(config.ProfileHFPAG, config.ProfileHFPHF, config.ProfileHSPAG, config.ProfileHSPHS)

	for _, info := range infos {
		if !e.adapterAllowed(info.Name) {
			continue
		}
		a := graph.NewAdapter(info, func() {})
		e.Graph.AddAdapter(a)

		if !needsSCO {
			continue
		}
		d, err := sco.NewDispatcher(a, e.Graph, e.SCORegistry, e.Logger)
		if err != nil {
			e.Logger.Error("failed to start sco dispatcher", "adapter", info.Name, "error", err)
			continue
		}
		e.dispatchers = append(e.dispatchers, d)
		go d.Run()
	}
	return nil
}

func (e *Engine) adapterAllowed(name string) bool {
	if len(e.Config.AdapterFilter) == 0 {
		return true
	}
	for _, f := range e.Config.AdapterFilter {
		if f == name {
			return true
		}
	}
	return false
}

// scheduleStaleTransportReap runs a reaper job every StaleTransportReap
// (spec §9 Open Question, resolved in favor of a reaper job rather than a
// per-transport timer). Each run releases the bt_fd of every A2DP transport
// whose PCM is not open at that moment; it does not track how long a
// transport has been idle or whether its PCM was ever opened.
func (e *Engine) scheduleStaleTransportReap() {
	_, err := e.scheduler.NewJob(
		gocron.DurationJob(e.Config.StaleTransportReap),
		gocron.NewTask(e.reapStaleTransports),
	)
	if err != nil {
		e.Logger.Error("failed to schedule stale transport reap", "error", err)
	}
}

func (e *Engine) reapStaleTransports() {
	for _, a := range e.Graph.Adapters() {
		for _, d := range a.Devices() {
			for _, t := range d.Transports() {
				if t.Profile.IsSCO() {
					continue
				}
				pcm := t.PCM
				if pcm == nil || pcm.IsOpen() {
					continue
				}
				if fd, _ := t.BTFD(); fd == -1 {
					continue
				}
				e.Logger.Info("reaping stale transport", "path", t.Path)
				t.SetBTFD(-1, 0, func(prev int) { _ = unix.Close(prev) })
			}
		}
	}
}

type persistedDeviceState struct {
	RFCOMMFeatures uint32 `json:"rfcommFeatures"`
	Battery        byte   `json:"battery"`
}

// scheduleDeviceStatePersistence periodically snapshots every Device's
// RFCOMM feature mask and XAPL battery level into kv.KV (SPEC_FULL domain
// stack: "kv.KV persists the last-known XAPL battery level and RFCOMM
// feature mask per device so a reconnect doesn't lose accessory state").
func (e *Engine) scheduleDeviceStatePersistence(ctx context.Context) {
	const interval = 30 * time.Second
	_, err := e.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { e.PersistDeviceState(ctx) }),
	)
	if err != nil {
		e.Logger.Error("failed to schedule device state persistence", "error", err)
	}
}

// PersistDeviceState snapshots every Device's RFCOMM feature mask and
// XAPL battery level into kv.KV immediately, used by the scheduled job and
// by Stop to flush state before shutdown.
func (e *Engine) PersistDeviceState(ctx context.Context) {
	for _, a := range e.Graph.Adapters() {
		for _, d := range a.Devices() {
			state := persistedDeviceState{
				RFCOMMFeatures: d.GetRFCOMMFeatures(),
				Battery:        d.GetBattery(),
			}
			raw, err := json.Marshal(state)
			if err != nil {
				continue
			}
			key := deviceStateKey(a.ID, d.Address)
			if err := e.kvStore.Set(ctx, key, raw); err != nil {
				e.Logger.Warn("failed to persist device state", "device", key, "error", err)
			}
		}
	}
}

// RegisterDevice records a newly paired remote device on adapterID,
// restoring its last-known RFCOMM feature mask and battery level from
// kv.KV if an earlier session persisted one. The BlueZ pairing/discovery
// agent that calls this is outside this daemon's scope (spec.md's
// Non-goals: pairing and discovery); this is the integration point it
// would call into.
func (e *Engine) RegisterDevice(ctx context.Context, adapterID int, addr [6]byte) (*graph.Device, error) {
	a, ok := e.Graph.Adapter(adapterID)
	if !ok {
		return nil, fmt.Errorf("engine: unknown adapter %d", adapterID)
	}
	d := a.Device(addr, func() {})
	e.restoreDeviceState(ctx, a.ID, d)
	return d, nil
}

func (e *Engine) restoreDeviceState(ctx context.Context, adapterID int, d *graph.Device) {
	key := deviceStateKey(adapterID, d.Address)
	raw, err := e.kvStore.Get(ctx, key)
	if err != nil {
		return
	}
	var state persistedDeviceState
	if err := json.Unmarshal(raw, &state); err != nil {
		return
	}
	d.SetRFCOMMFeatures(state.RFCOMMFeatures)
	d.SetBattery(state.Battery)
}

func deviceStateKey(adapterID int, addr [6]byte) string {
	return fmt.Sprintf("btaudiod/device/%d/%x", adapterID, addr)
}

// UpdateDefaults applies the subset of configuration SIGHUP reloads (spec
// §9: codec-default and soft-volume-default only; everything else requires
// a restart).
func (e *Engine) UpdateDefaults(codec config.CodecName, softVolumeDefault bool) {
	e.Config.DefaultA2DPCodec = codec
	e.Config.SoftVolumeDefault = softVolumeDefault
	e.Logger.Info("reloaded defaults", "codec", codec, "softVolumeDefault", softVolumeDefault)
}
