// SPDX-License-Identifier: AGPL-3.0-or-later
package a2dpio

import "github.com/puzpuzpuz/xsync/v4"

// Registry maps a running Source/Sink's PCM path to its control channel, so
// internal/rpc's control-socket and PCM1 Drain/Drop/Pause/Resume handlers
// can reach a specific I/O thread without either side knowing about the
// other's internals (same pattern as internal/sco.Registry).
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

// Send delivers sig to the named PCM's I/O thread, returning false if no
// thread is registered under that path.
func (r *Registry) Send(path string, sig Signal) bool {
	ch, ok := r.threads.Load(path)
	if !ok {
		return false
	}
	select {
	case ch <- sig:
		return true
	default:
		return false
	}
}
