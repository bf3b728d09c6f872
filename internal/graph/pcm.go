// SPDX-License-Identifier: AGPL-3.0-or-later
package graph

import (
	"sync"

	"github.com/btaudio/btaudiod/internal/audio"
)

// Direction is which way audio flows through a PCM relative to the local
// client (spec §3: "Direction + format + sampling + channel count...").
type Direction int

const (
	DirectionSink Direction = iota
	DirectionSource
)

func (d Direction) String() string {
	if d == DirectionSource {
		return "source"
	}
	return "sink"
}

// PCM is one audio endpoint of a Transport. It is closed (fd == -1) or
// open; Cond signals drain completion to anyone waiting on it (spec §3,
// §9 "keep as a condition variable + mutex").
type PCM struct {
	mu sync.Mutex

	Direction  Direction
	Format     audio.SampleFormat
	Sampling   int
	Channels   int
	Volume     audio.VolumeWord
	SoftVolume bool

	fd        int
	ctrlFD    int
	Cond      *sync.Cond
	draining  bool
}

// NewPCM constructs a closed PCM for the given direction/format.
func NewPCM(dir Direction, format audio.SampleFormat, sampling, channels int) *PCM {
	p := &PCM{
		Direction: dir,
		Format:    format,
		Sampling:  sampling,
		Channels:  channels,
		fd:        -1,
		ctrlFD:    -1,
	}
	p.Cond = sync.NewCond(&p.mu)
	return p
}

// Open assigns the pipe and control-socket file descriptors a client
// receives from PCM1.Open, transitioning the PCM to the open state.
func (p *PCM) Open(fd, ctrlFD int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fd = fd
	p.ctrlFD = ctrlFD
}

// Close releases both descriptors, returning to the closed state.
func (p *PCM) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fd = -1
	p.ctrlFD = -1
}

// IsOpen reports whether the PCM currently has a client attached.
func (p *PCM) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fd != -1
}

func (p *PCM) FDs() (fd, ctrlFD int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fd, p.ctrlFD
}

// BeginDrain marks the PCM as draining; the owning I/O thread calls
// FinishDrain once the codec and FFB have emptied (spec Testable Property 5).
func (p *PCM) BeginDrain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draining = true
}

// FinishDrain clears the draining flag and wakes every waiter.
func (p *PCM) FinishDrain() {
	p.mu.Lock()
	p.draining = false
	p.mu.Unlock()
	p.Cond.Broadcast()
}

// IsDraining reports whether BeginDrain has been called without a matching
// FinishDrain yet.
func (p *PCM) IsDraining() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draining
}

// WaitDrain blocks until draining clears.
func (p *PCM) WaitDrain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.draining {
		p.Cond.Wait()
	}
}

// SetVolume updates the volume word, returning false if the new value is
// identical to the current one (spec Testable Property 2: volume
// idempotence — callers use this to suppress a redundant property-changed
// signal).
func (p *PCM) SetVolume(v audio.VolumeWord) (changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Volume == v {
		return false
	}
	p.Volume = v
	return true
}
