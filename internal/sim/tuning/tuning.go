package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz     int     `yaml:"tick_rate_hz"`
	SampleWindowMs int     `yaml:"sample_window_ms"`
	EyeHeight      float64 `yaml:"eye_height"`
	WorldBoundaryR int     `yaml:"world_boundary_r"`
	SurfaceY       int     `yaml:"surface_y"`

	// Flags gates reporting only; corrections still apply when false.
	Flags bool `yaml:"flags"`

	Detectors map[string]Detector `yaml:"detectors"`
	Reach     Reach               `yaml:"reach"`
	Spawn     SpawnVolume         `yaml:"spawn_protection"`

	BypassTags         []string `yaml:"bypass_tags"`
	OverrideTags       []string `yaml:"override_tags"`
	BannedItemPrefixes []string `yaml:"banned_item_prefixes"`
	IceBlocks          []string `yaml:"ice_blocks"`
	ExemptTargets      []string `yaml:"exempt_targets"`
}

type Detector struct {
	Enabled    bool               `yaml:"enabled"`
	Thresholds map[string]float64 `yaml:"thresholds,omitempty"`
}

// Reach holds the per-gamemode base reach; the effective limit is base*scalar^2.
type Reach struct {
	Survival  float64 `yaml:"survival"`
	Creative  float64 `yaml:"creative"`
	Adventure float64 `yaml:"adventure"`
	Spectator float64 `yaml:"spectator"`
	Scalar    float64 `yaml:"scalar"`
}

type SpawnVolume struct {
	Min [3]int `yaml:"min"`
	Max [3]int `yaml:"max"`
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	// yaml replaces whole map values; restore thresholds the file left out.
	def := Defaults()
	for kind, d := range t.Detectors {
		base, ok := def.Detectors[kind]
		if !ok {
			continue
		}
		if d.Thresholds == nil {
			d.Thresholds = map[string]float64{}
		}
		for k, v := range base.Thresholds {
			if _, ok := d.Thresholds[k]; !ok {
				d.Thresholds[k] = v
			}
		}
		t.Detectors[kind] = d
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.SampleWindowMs <= 0 {
		return fmt.Errorf("sample_window_ms must be > 0")
	}
	if t.Reach.Scalar <= 0 {
		return fmt.Errorf("reach.scalar must be > 0")
	}
	for i := 0; i < 3; i++ {
		if t.Spawn.Min[i] > t.Spawn.Max[i] {
			return fmt.Errorf("spawn_protection: min[%d] > max[%d]", i, i)
		}
	}
	return nil
}

// Bool resolves "flags" and "<kind>.enabled" keys.
func (t Tuning) Bool(key string) (bool, bool) {
	if key == "flags" {
		return t.Flags, true
	}
	kind, field, ok := strings.Cut(key, ".")
	if !ok || field != "enabled" {
		return false, false
	}
	d, ok := t.Detectors[kind]
	if !ok {
		return false, false
	}
	return d.Enabled, true
}

// Number resolves top-level numbers, "reach.<gamemode|scalar>",
// "spawn_protection.<min|max>_<x|y|z>" and "<kind>.<threshold>".
func (t Tuning) Number(key string) (float64, bool) {
	switch key {
	case "tick_rate_hz":
		return float64(t.TickRateHz), true
	case "sample_window_ms":
		return float64(t.SampleWindowMs), true
	case "eye_height":
		return t.EyeHeight, true
	}
	group, field, ok := strings.Cut(key, ".")
	if !ok {
		return 0, false
	}
	switch group {
	case "reach":
		switch field {
		case "survival":
			return t.Reach.Survival, true
		case "creative":
			return t.Reach.Creative, true
		case "adventure":
			return t.Reach.Adventure, true
		case "spectator":
			return t.Reach.Spectator, true
		case "scalar":
			return t.Reach.Scalar, true
		}
		return 0, false
	case "spawn_protection":
		if v, ok := spawnField(t.Spawn, field); ok {
			return v, true
		}
	}
	d, ok := t.Detectors[group]
	if !ok {
		return 0, false
	}
	v, ok := d.Thresholds[field]
	return v, ok
}

func spawnField(s SpawnVolume, field string) (float64, bool) {
	bound, axis, ok := strings.Cut(field, "_")
	if !ok || len(axis) != 1 {
		return 0, false
	}
	i := strings.IndexByte("xyz", axis[0])
	if i < 0 {
		return 0, false
	}
	switch bound {
	case "min":
		return float64(s.Min[i]), true
	case "max":
		return float64(s.Max[i]), true
	}
	return 0, false
}

func (t Tuning) Strings(key string) ([]string, bool) {
	switch key {
	case "bypass_tags":
		return t.BypassTags, true
	case "override_tags":
		return t.OverrideTags, true
	case "banned_item_prefixes":
		return t.BannedItemPrefixes, true
	case "ice_blocks":
		return t.IceBlocks, true
	case "exempt_targets":
		return t.ExemptTargets, true
	}
	return nil, false
}
