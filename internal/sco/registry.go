// SPDX-License-Identifier: AGPL-3.0-or-later
package sco

import "github.com/puzpuzpuz/xsync/v4"

// Registry maps a running Transport's path to its IOThread's control
// channel, so the Dispatcher can "ping" both PCM workers back into the
// running state after installing a new bt_fd (spec §4.4 step 4) without
// graph.Transport needing to know anything about internal/sco.
type Registry struct {
	threads *xsync.Map[string, chan Signal]
}

func NewRegistry() *Registry {
	return &Registry{threads: xsync.NewMap[string, chan Signal]()}
}

func (r *Registry) Register(path string, control chan Signal) {
	r.threads.Store(path, control)
}

func (r *Registry) Unregister(path string) {
	r.threads.Delete(path)
}

// Ping sends SignalSync to the named transport's I/O thread, a no-op if
// the thread isn't registered (e.g. it hasn't started yet).
func (r *Registry) Ping(path string) {
	ch, ok := r.threads.Load(path)
	if !ok {
		return
	}
	select {
	case ch <- SignalSync:
	default:
	}
}
