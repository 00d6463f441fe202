// Package config freezes the provider's values into a per-tick snapshot.
package config

import (
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
)

// Fallback thresholds apply when the provider does not define a key.
var Fallback = map[model.Kind]map[string]float64{
	model.KindSpeedRotation:     {"yaw_delta": 179, "pitch_delta": 1.9, "accel_epsilon": 1e-7},
	model.KindSpeedIce:          {"max_speed": 5.7},
	model.KindSpeedTeleport:     {"max_accel": 0, "min_distance": 4, "impulse_scale": 1},
	model.KindPhaseGeometric:    {"min_distance": 0.001, "knockback_scale": 2, "reapply_ticks": 2},
	model.KindPhaseMicro:        {"ray_length": 0.01, "min_distance": 0.001},
	model.KindFlyGroundMismatch: {"grid": 1.0 / 64, "epsilon": 1e-4},
	model.KindClickRate:         {"max": 20, "decay_ticks": 20},
	model.KindAimAssist:         {"min_dot": 0.38, "min_distance": 1},
}

var fallbackReach = map[model.GameMode]float64{
	model.GameModeSurvival:  5,
	model.GameModeCreative:  7,
	model.GameModeAdventure: 5,
	model.GameModeSpectator: 5,
}

// Snapshot is read-only for the tick it was loaded in.
type Snapshot struct {
	// Flags gates reporting; corrections apply regardless.
	Flags bool

	TickRate  float64
	WindowMs  int64
	EyeHeight float64

	enabled    map[model.Kind]bool
	thresholds map[model.Kind]map[string]float64

	reach       map[model.GameMode]float64
	reachScalar float64

	SpawnMin geom.BlockPos
	SpawnMax geom.BlockPos

	BypassTags     []string
	OverrideTags   []string
	BannedPrefixes []string
	IceBlocks      []string
	ExemptTargets  []string
}

func Load(p host.ConfigProvider) *Snapshot {
	s := &Snapshot{
		Flags:       boolOr(p, "flags", true),
		TickRate:    numOr(p, "tick_rate_hz", 20),
		WindowMs:    int64(numOr(p, "sample_window_ms", 1000)),
		EyeHeight:   numOr(p, "eye_height", 1.62),
		enabled:     map[model.Kind]bool{},
		thresholds:  map[model.Kind]map[string]float64{},
		reach:       map[model.GameMode]float64{},
		reachScalar: numOr(p, "reach.scalar", 1.5),
	}
	for _, k := range model.AllKinds() {
		s.enabled[k] = boolOr(p, string(k)+".enabled", false)
		if names, ok := Fallback[k]; ok {
			m := make(map[string]float64, len(names))
			for name, def := range names {
				m[name] = numOr(p, string(k)+"."+name, def)
			}
			s.thresholds[k] = m
		}
	}
	for gm, def := range fallbackReach {
		s.reach[gm] = numOr(p, "reach."+string(gm), def)
	}
	s.SpawnMin = geom.BlockPos{
		X: int(numOr(p, "spawn_protection.min_x", -32)),
		Y: int(numOr(p, "spawn_protection.min_y", -64)),
		Z: int(numOr(p, "spawn_protection.min_z", -32)),
	}
	s.SpawnMax = geom.BlockPos{
		X: int(numOr(p, "spawn_protection.max_x", 32)),
		Y: int(numOr(p, "spawn_protection.max_y", 320)),
		Z: int(numOr(p, "spawn_protection.max_z", 32)),
	}
	s.BypassTags = stringsOr(p, "bypass_tags", []string{"op"})
	s.OverrideTags = stringsOr(p, "override_tags", []string{"dev"})
	s.BannedPrefixes = stringsOr(p, "banned_item_prefixes", []string{"tile."})
	s.IceBlocks = stringsOr(p, "ice_blocks", nil)
	s.ExemptTargets = stringsOr(p, "exempt_targets", nil)
	if s.TickRate <= 0 {
		s.TickRate = 20
	}
	return s
}

func (s *Snapshot) Enabled(k model.Kind) bool { return s.enabled[k] }

// Threshold returns the named threshold of k, or 0 when unknown.
func (s *Snapshot) Threshold(k model.Kind, name string) float64 {
	if m, ok := s.thresholds[k]; ok {
		if v, ok := m[name]; ok {
			return v
		}
	}
	return Fallback[k][name]
}

// ReachLimit is baseReach(gm) * scalar^2.
func (s *Snapshot) ReachLimit(gm model.GameMode) float64 {
	base, ok := s.reach[gm]
	if !ok {
		base = s.reach[model.GameModeSurvival]
	}
	return base * s.reachScalar * s.reachScalar
}

// Bypassed reports whether tags exempt an actor from boundary checks. An
// override tag cancels the bypass so operators can test the checks.
func (s *Snapshot) Bypassed(tags []string) bool {
	if anyIn(tags, s.OverrideTags) {
		return false
	}
	return anyIn(tags, s.BypassTags)
}

func (s *Snapshot) InSpawn(b geom.BlockPos) bool {
	return b.X >= s.SpawnMin.X && b.X <= s.SpawnMax.X &&
		b.Y >= s.SpawnMin.Y && b.Y <= s.SpawnMax.Y &&
		b.Z >= s.SpawnMin.Z && b.Z <= s.SpawnMax.Z
}

func (s *Snapshot) IsIce(typeID string) bool { return contains(s.IceBlocks, typeID) }

func (s *Snapshot) Exempt(typeID string) bool { return contains(s.ExemptTargets, typeID) }

func anyIn(have, want []string) bool {
	for _, w := range want {
		if contains(have, w) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func boolOr(p host.ConfigProvider, key string, def bool) bool {
	if p == nil {
		return def
	}
	if v, ok := p.Bool(key); ok {
		return v
	}
	return def
}

func numOr(p host.ConfigProvider, key string, def float64) float64 {
	if p == nil {
		return def
	}
	if v, ok := p.Number(key); ok {
		return v
	}
	return def
}

func stringsOr(p host.ConfigProvider, key string, def []string) []string {
	if p == nil {
		return def
	}
	if v, ok := p.Strings(key); ok {
		return v
	}
	return def
}
