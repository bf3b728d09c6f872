// SPDX-License-Identifier: AGPL-3.0-or-later

// Package graph models the Adapter→Device→Transport→PCM object graph
// (spec §3): reference-counted entities, each guarded by its own mutex,
// linked owner-to-owned only — a child never holds a strong pointer back to
// its parent (spec §9 DESIGN NOTES).
package graph

import "sync/atomic"

// Ref is an atomic, mutex-free reference count. The last Unref to bring the
// count to zero runs onZero synchronously and exactly once (spec invariant
// 5: "the last decrement runs the destructor synchronously").
type Ref struct {
	n      atomic.Int32
	onZero func()
}

// NewRef creates a reference count starting at 1 (the caller's own
// reference), invoking onZero exactly once when the count reaches zero.
func NewRef(onZero func()) *Ref {
	r := &Ref{onZero: onZero}
	r.n.Store(1)
	return r
}

// Add increments the reference count. It must only be called on an entity
// the caller already holds a live reference to.
func (r *Ref) Add() int32 {
	return r.n.Add(1)
}

// Unref decrements the reference count, running the destructor and
// returning true if this was the last reference.
func (r *Ref) Unref() bool {
	n := r.n.Add(-1)
	if n == 0 {
		if r.onZero != nil {
			r.onZero()
		}
		return true
	}
	return false
}

// Count reports the current reference count, for tests and diagnostics.
func (r *Ref) Count() int32 {
	return r.n.Load()
}
