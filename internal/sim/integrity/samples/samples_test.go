package samples

import (
	"errors"
	"math"
	"testing"

	"voxelguard.ai/internal/sim/geom"
)

func TestPushKeepsWindowBounded(t *testing.T) {
	b := NewBuffer(1000)
	var w []Sample
	for i := int64(0); i < 100; i++ {
		now := i * 50
		w = b.Push("a", Sample{TimeMs: now, Pos: geom.Vec3{float64(i), 64, 0}})
		for j, s := range w {
			if now-s.TimeMs > 1000 {
				t.Fatalf("tick %d: sample %d too old (%d)", i, j, now-s.TimeMs)
			}
			if j > 0 && s.TimeMs < w[j-1].TimeMs {
				t.Fatalf("tick %d: timestamps decreasing at %d", i, j)
			}
		}
	}
	// 1000ms inclusive at 50ms spacing is 21 samples.
	if len(w) != 21 {
		t.Fatalf("len=%d want 21", len(w))
	}
}

func TestPushClampsOutOfOrderTimestamps(t *testing.T) {
	b := NewBuffer(1000)
	b.Push("a", Sample{TimeMs: 500})
	w := b.Push("a", Sample{TimeMs: 400})
	if w[1].TimeMs != 500 {
		t.Fatalf("expected clamp to 500, got %d", w[1].TimeMs)
	}
}

func TestPushIsPerActor(t *testing.T) {
	b := NewBuffer(1000)
	b.Push("a", Sample{TimeMs: 0})
	b.Push("b", Sample{TimeMs: 0})
	b.Push("a", Sample{TimeMs: 50})
	if len(b.Window("a")) != 2 || len(b.Window("b")) != 1 {
		t.Fatalf("windows leaked across actors")
	}
	b.Drop("a")
	if b.Window("a") != nil || b.Len() != 1 {
		t.Fatalf("drop failed")
	}
}

func TestAnalyzeNoData(t *testing.T) {
	cases := [][]Sample{
		nil,
		{{TimeMs: 10}},
		{{TimeMs: 10}, {TimeMs: 10}},
	}
	for i, w := range cases {
		if _, err := Analyze(w); !errors.Is(err, ErrNoData) {
			t.Fatalf("case %d: err=%v want ErrNoData", i, err)
		}
	}
	if _, err := Analyze([]Sample{{TimeMs: 0}, {TimeMs: 50}}); err != nil {
		t.Fatalf("two spaced samples should analyze: %v", err)
	}
}

func TestAnalyzeValues(t *testing.T) {
	w := []Sample{
		{TimeMs: 0, Pos: geom.Vec3{0, 64, 0}, Vel: geom.Vec3{0, 0, 0}},
		{TimeMs: 250, Pos: geom.Vec3{1, 64, 0}, Vel: geom.Vec3{1, 0, 0}},
		{TimeMs: 250, Pos: geom.Vec3{1, 64, 0}, Vel: geom.Vec3{9, 0, 0}},
		{TimeMs: 500, Pos: geom.Vec3{3, 64, 0}, Vel: geom.Vec3{9, 0, 0}},
	}
	a, err := Analyze(w)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.SampleCount != 4 || a.Duration != 0.5 {
		t.Fatalf("count=%d dur=%v", a.SampleCount, a.Duration)
	}
	if a.Distance != 3 || a.AvgSpeed != 6 {
		t.Fatalf("dist=%v avg=%v", a.Distance, a.AvgSpeed)
	}
	// The zero-dt pair is skipped; the first pair gives 1/0.25.
	if math.Abs(a.PeakAcc-4) > 1e-9 {
		t.Fatalf("peak=%v want 4", a.PeakAcc)
	}
}

func TestLastTeleportPair(t *testing.T) {
	w := []Sample{
		{TimeMs: 0, Pos: geom.Vec3{0, 64, 0}},
		{TimeMs: 50, Pos: geom.Vec3{10, 64, 0}},
	}
	s, err := Last(w)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if math.Abs(s.Distance-10) > 1e-9 || s.Accel != 0 {
		t.Fatalf("dist=%v accel=%v", s.Distance, s.Accel)
	}
}
