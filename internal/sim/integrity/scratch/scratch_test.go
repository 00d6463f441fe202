package scratch

import (
	"testing"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
)

func TestLifecycle(t *testing.T) {
	tb := NewTable()
	r := tb.Join("b", 5)
	tb.Join("a", 5)
	r.ClickCounter = 3
	if got, ok := tb.Get("b"); !ok || got.ClickCounter != 3 {
		t.Fatalf("get: %+v %v", got, ok)
	}
	if ids := tb.IDs(); len(ids) != 2 || ids[0] != "a" {
		t.Fatalf("ids=%v", ids)
	}
	tb.Leave("b")
	if tb.Live("b") || tb.Len() != 1 {
		t.Fatalf("leave did not remove record")
	}
	// Rejoin starts clean.
	if r2 := tb.Join("b", 9); r2.ClickCounter != 0 || r2.Seen {
		t.Fatalf("rejoin kept state: %+v", r2)
	}
}

func TestPrevDefaultsToCurrent(t *testing.T) {
	r := &Record{}
	cur := model.Snapshot{Pos: geom.Vec3{1, 64, 1}, Rot: model.Rotation{Yaw: 90}}
	feet, head, rot := r.Prev(cur, 1.62)
	if feet != cur.Pos || head != (geom.Vec3{1, 65.62, 1}) || rot != cur.Rot {
		t.Fatalf("feet=%v head=%v rot=%v", feet, head, rot)
	}
	r.EndTick(cur, 1.62, 0.5)
	next := cur.WithPos(geom.Vec3{2, 64, 1})
	feet, _, _ = r.Prev(next, 1.62)
	if feet != cur.Pos || r.PrevPitchDelta != 0.5 {
		t.Fatalf("feet=%v pd=%v", feet, r.PrevPitchDelta)
	}
	if got := r.Safe(next.Pos); got != next.Pos {
		t.Fatalf("safe fallback=%v", got)
	}
}

func TestClickCounterBounds(t *testing.T) {
	r := &Record{}
	for i := 0; i < 3; i++ {
		r.Click()
	}
	if r.ClickCounter != 3 {
		t.Fatalf("counter=%d", r.ClickCounter)
	}
	for tick := uint64(0); tick <= 200; tick++ {
		before := r.ClickCounter
		r.DecayClicks(tick, 20)
		if r.ClickCounter < 0 {
			t.Fatalf("negative counter at %d", tick)
		}
		if before-r.ClickCounter > 1 {
			t.Fatalf("decayed by more than 1 at %d", tick)
		}
	}
	if r.ClickCounter != 0 {
		t.Fatalf("counter=%d want 0", r.ClickCounter)
	}
	// Exactly one decrement per 20-tick window.
	r.ClickCounter = 5
	r.ClickLastDecayTick = 0
	for tick := uint64(1); tick <= 60; tick++ {
		r.DecayClicks(tick, 20)
	}
	if r.ClickCounter != 2 {
		t.Fatalf("after 60 ticks counter=%d want 2", r.ClickCounter)
	}
}

func TestClickDecayCatchesUpSkippedWindows(t *testing.T) {
	r := &Record{ClickCounter: 22, ClickLastDecayTick: 0}
	r.DecayClicks(100, 20)
	if r.ClickCounter != 17 || r.ClickLastDecayTick != 100 {
		t.Fatalf("counter=%d last=%d", r.ClickCounter, r.ClickLastDecayTick)
	}
	// The partial window carries over.
	r.DecayClicks(135, 20)
	if r.ClickCounter != 16 || r.ClickLastDecayTick != 120 {
		t.Fatalf("counter=%d last=%d", r.ClickCounter, r.ClickLastDecayTick)
	}
	r.DecayClicks(10_000, 20)
	if r.ClickCounter != 0 {
		t.Fatalf("counter=%d want 0", r.ClickCounter)
	}
}
