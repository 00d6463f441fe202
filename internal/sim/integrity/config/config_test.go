package config

import (
	"testing"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
)

type fakeProvider struct {
	bools map[string]bool
	nums  map[string]float64
}

func (f fakeProvider) Bool(k string) (bool, bool) {
	v, ok := f.bools[k]
	return v, ok
}

func (f fakeProvider) Number(k string) (float64, bool) {
	v, ok := f.nums[k]
	return v, ok
}

func (f fakeProvider) Strings(string) ([]string, bool) { return nil, false }

func TestLoadFallsBack(t *testing.T) {
	s := Load(fakeProvider{
		bools: map[string]bool{"speed_ice.enabled": true, "flags": false},
		nums:  map[string]float64{"speed_ice.max_speed": 8, "reach.creative": 6},
	})
	if !s.Enabled(model.KindSpeedIce) || s.Enabled(model.KindPhaseMicro) {
		t.Fatalf("enabled flags wrong")
	}
	if s.Flags {
		t.Fatalf("flags should be false")
	}
	if got := s.Threshold(model.KindSpeedIce, "max_speed"); got != 8 {
		t.Fatalf("max_speed=%v", got)
	}
	if got := s.Threshold(model.KindAimAssist, "min_dot"); got != 0.38 {
		t.Fatalf("min_dot=%v", got)
	}
	if got := s.ReachLimit(model.GameModeSurvival); got != 11.25 {
		t.Fatalf("survival reach=%v", got)
	}
	if got := s.ReachLimit(model.GameModeCreative); got != 13.5 {
		t.Fatalf("creative reach=%v", got)
	}
}

func TestBypassAndSpawn(t *testing.T) {
	s := Load(nil)
	if !s.Bypassed([]string{"op"}) {
		t.Fatalf("op should bypass")
	}
	if s.Bypassed([]string{"op", "dev"}) {
		t.Fatalf("dev cancels the bypass")
	}
	if s.Bypassed(nil) {
		t.Fatalf("untagged actor should not bypass")
	}
	if !s.InSpawn(geom.BlockPos{X: 32, Y: 320, Z: -32}) {
		t.Fatalf("edge of spawn volume is protected")
	}
	if s.InSpawn(geom.BlockPos{X: 33, Y: 64, Z: 0}) {
		t.Fatalf("outside spawn volume")
	}
}
