// SPDX-License-Identifier: AGPL-3.0-or-later
package audio

import (
	"sync"
	"time"
)

// ASRSync paces a stream of fixed-size audio frames at a constant sample
// rate. A2DP and SCO output threads call Sync once per frame instead of
// sleeping a fixed duration, so small scheduling jitter in one frame is
// absorbed rather than accumulating into drift over the life of the
// transport — the same role BlueALSA's io.c asrsync_sync plays before
// every write() to the Bluetooth socket.
//
// It is driven by a single reusable timer (grounded on the call-expiry
// timer bookkeeping in the teacher's call tracker: one *time.Timer,
// guarded by a mutex, reset rather than recreated on every tick).
type ASRSync struct {
	mu          sync.Mutex
	frameNanos  float64
	framesMoved int64
	started     time.Time
	timer       *time.Timer
}

// NewASRSync builds a pacer for framesPerSecond-rate audio.
func NewASRSync(framesPerSecond int) *ASRSync {
	return &ASRSync{
		frameNanos: float64(time.Second) / float64(framesPerSecond),
		timer:      time.NewTimer(0),
	}
}

// Reset restarts the pacing baseline, called when a transport resumes after
// being paused/drained.
func (a *ASRSync) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.framesMoved = 0
	a.started = time.Now()
	if !a.timer.Stop() {
		select {
		case <-a.timer.C:
		default:
		}
	}
}

// Sync adds frames to the count moved since the pacing baseline and blocks
// until that many frames are due to have been emitted, then returns. It
// should be called once per frame, immediately before the frame is written
// to the Bluetooth socket.
func (a *ASRSync) Sync(frames int) {
	a.mu.Lock()
	if a.started.IsZero() {
		a.started = time.Now()
	}
	a.framesMoved += int64(frames)
	due := a.started.Add(time.Duration(float64(a.framesMoved) * a.frameNanos))
	delay := time.Until(due)
	a.mu.Unlock()

	if delay <= 0 {
		return
	}
	a.timer.Reset(delay)
	<-a.timer.C
}

// SkipAhead drops frames from the schedule without waiting for them, used
// when a transport detects it has fallen far enough behind that delaying
// frame-by-frame would only build more backlog (BlueALSA's asrsync_skip).
func (a *ASRSync) SkipAhead(frames int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.framesMoved += int64(frames)
}
