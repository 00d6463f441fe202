// Package samples keeps each actor's rolling window of motion samples.
package samples

import (
	"errors"
	"math"

	"voxelguard.ai/internal/sim/geom"
)

// ErrNoData is returned by Analyze when the window cannot describe motion:
// fewer than two samples or a non-positive duration.
var ErrNoData = errors.New("samples: insufficient data")

const DefaultWindowMs = 1000

type Sample struct {
	TimeMs int64
	Pos    geom.Vec3
	Vel    geom.Vec3
}

type Analysis struct {
	Distance    float64
	AvgSpeed    float64 // units per second
	PeakAcc     float64 // |Δv| per second
	SampleCount int
	Duration    float64 // seconds
}

// Buffer holds one window per actor. Windows are bounded by time only.
type Buffer struct {
	windowMs int64
	byActor  map[string][]Sample
}

func NewBuffer(windowMs int64) *Buffer {
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}
	return &Buffer{windowMs: windowMs, byActor: map[string][]Sample{}}
}

func (b *Buffer) WindowMs() int64 { return b.windowMs }

// SetWindowMs changes the window for later pushes. Non-positive values
// are ignored.
func (b *Buffer) SetWindowMs(ms int64) {
	if ms > 0 {
		b.windowMs = ms
	}
}

// Push evicts samples older than the window relative to s, then appends s.
// A sample earlier than the newest retained one is clamped to keep the
// window non-decreasing. The returned slice is only valid until the next
// Push for the same actor.
func (b *Buffer) Push(actorID string, s Sample) []Sample {
	w := b.byActor[actorID]
	if n := len(w); n > 0 && s.TimeMs < w[n-1].TimeMs {
		s.TimeMs = w[n-1].TimeMs
	}
	cut := 0
	for cut < len(w) && s.TimeMs-w[cut].TimeMs > b.windowMs {
		cut++
	}
	if cut > 0 {
		w = append(w[:0], w[cut:]...)
	}
	w = append(w, s)
	b.byActor[actorID] = w
	return w
}

func (b *Buffer) Window(actorID string) []Sample {
	return b.byActor[actorID]
}

func (b *Buffer) Drop(actorID string) {
	delete(b.byActor, actorID)
}

func (b *Buffer) Len() int { return len(b.byActor) }

func Analyze(w []Sample) (Analysis, error) {
	if len(w) < 2 {
		return Analysis{}, ErrNoData
	}
	first, last := w[0], w[len(w)-1]
	dur := float64(last.TimeMs-first.TimeMs) / 1000
	if dur <= 0 {
		return Analysis{}, ErrNoData
	}
	dist := last.Pos.Sub(first.Pos).Len()
	peak := 0.0
	for i := 1; i < len(w); i++ {
		dt := float64(w[i].TimeMs-w[i-1].TimeMs) / 1000
		if dt <= 0 {
			continue
		}
		acc := w[i].Vel.Sub(w[i-1].Vel).Len() / dt
		if acc > peak {
			peak = acc
		}
	}
	if !geom.Finite(geom.Vec3{dist, peak, dur}) {
		return Analysis{}, geom.ErrDegenerate
	}
	return Analysis{
		Distance:    dist,
		AvgSpeed:    dist / dur,
		PeakAcc:     peak,
		SampleCount: len(w),
		Duration:    dur,
	}, nil
}

// LastStep describes the most recent consecutive pair of the window.
type LastStep struct {
	Distance float64 // displacement between the pair
	Accel    float64 // |Δv|/Δt in units per tick per second
	DtSec    float64
	Disp     geom.Vec3
}

// Last returns the newest pair's displacement and acceleration. It fails
// with ErrNoData under the same conditions as Analyze, applied to the pair.
func Last(w []Sample) (LastStep, error) {
	if len(w) < 2 {
		return LastStep{}, ErrNoData
	}
	a, b := w[len(w)-2], w[len(w)-1]
	dt := float64(b.TimeMs-a.TimeMs) / 1000
	if dt <= 0 {
		return LastStep{}, ErrNoData
	}
	disp := b.Pos.Sub(a.Pos)
	acc := b.Vel.Sub(a.Vel).Len() / dt
	if !geom.Finite(disp) || math.IsNaN(acc) || math.IsInf(acc, 0) {
		return LastStep{}, geom.ErrDegenerate
	}
	return LastStep{Distance: disp.Len(), Accel: acc, DtSec: dt, Disp: disp}, nil
}

// Amend overwrites the newest sample's position, used when the server moves
// an actor so the next pair measures from where the actor really is.
func (b *Buffer) Amend(actorID string, pos geom.Vec3) {
	w := b.byActor[actorID]
	if len(w) == 0 {
		return
	}
	w[len(w)-1].Pos = pos
}
