// Package state derives an actor's motion state from a snapshot and four
// block probes.
package state

import (
	"math"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/mathx"
)

// Probe offsets above the feet.
const (
	FootOffset     = -0.5
	HeadOffset     = 1.8
	HeadLowOffset  = 1.0
	HeadHighOffset = 2.0
)

type Probes struct {
	Foot     model.BlockInfo
	Head     model.BlockInfo
	HeadLow  model.BlockInfo
	HeadHigh model.BlockInfo
}

type MotionState struct {
	StandingOnSolid  bool
	HeadBlocked      bool
	OnEighthBoundary bool
	IsOnGround       bool
	IsFalling        bool
	IsAscending      bool
	IsSwimming       bool
	IsInWater        bool
	IsAirborne       bool
	IsMoving         bool
	IsCrawling       bool

	FootType string
	HeadType string
}

// ProbeAt reads the block containing (floor x, floor(y+dy), floor z). Any
// failure is reported as an unknown block, which reads as non-solid.
func ProbeAt(w host.WorldProbe, pos geom.Vec3, dy float64) model.BlockInfo {
	if w == nil || !geom.Finite(pos) {
		return model.BlockInfo{}
	}
	bp := geom.BlockPos{X: mathx.FloorInt(pos.X()), Y: mathx.FloorInt(pos.Y() + dy), Z: mathx.FloorInt(pos.Z())}
	info, err := w.Block(bp)
	if err != nil {
		return model.BlockInfo{}
	}
	return info
}

func Probe(w host.WorldProbe, pos geom.Vec3) Probes {
	return Probes{
		Foot:     ProbeAt(w, pos, FootOffset),
		Head:     ProbeAt(w, pos, HeadOffset),
		HeadLow:  ProbeAt(w, pos, HeadLowOffset),
		HeadHigh: ProbeAt(w, pos, HeadHighOffset),
	}
}

// OnEighthBoundary reports whether y sits on a 1/8 block step.
func OnEighthBoundary(y float64) bool {
	y8 := y * 8
	return math.Abs(y8-math.Round(y8)) < 0.01
}

// Compute is pure: equal inputs give equal results.
func Compute(s model.Snapshot, p Probes) MotionState {
	var m MotionState
	vy := s.Vel.Y()

	m.StandingOnSolid = p.Foot.Solid()
	m.HeadBlocked = p.Head.Solid()
	m.OnEighthBoundary = OnEighthBoundary(s.Pos.Y())
	m.IsSwimming = s.Status.Swimming
	m.IsInWater = s.Status.InWater

	m.IsOnGround = m.StandingOnSolid || m.OnEighthBoundary ||
		(!m.IsSwimming && !m.IsInWater && math.Abs(vy) < 0.05)
	m.IsFalling = vy < -0.1 && !m.IsOnGround && !m.IsSwimming
	m.IsAscending = vy > 0.1 && !m.IsOnGround && !m.IsSwimming
	m.IsAirborne = !m.IsOnGround && !m.IsSwimming && !m.IsInWater
	m.IsMoving = s.Vel.Len() > 0.1
	m.IsCrawling = p.HeadLow.Solid() && p.HeadHigh.Solid()

	m.FootType = p.Foot.TypeID
	m.HeadType = p.Head.TypeID
	return m
}
