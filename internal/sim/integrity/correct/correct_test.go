package correct

import (
	"errors"
	"testing"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
)

type call struct {
	op   string
	id   string
	pos  geom.Vec3
	h    geom.Vec2
	v    float64
	slot int
}

type recActuator struct {
	calls []call
	gone  map[string]bool
}

func (r *recActuator) err(id string) error {
	if r.gone[id] {
		return host.ErrActorGone
	}
	return nil
}

func (r *recActuator) Teleport(id string, p geom.Vec3, _ host.TeleportOptions) error {
	r.calls = append(r.calls, call{op: "teleport", id: id, pos: p})
	return r.err(id)
}

func (r *recActuator) ApplyImpulse(id string, h geom.Vec2, v float64) error {
	r.calls = append(r.calls, call{op: "impulse", id: id, h: h, v: v})
	return r.err(id)
}

func (r *recActuator) CancelPendingAction(id string) error {
	r.calls = append(r.calls, call{op: "cancel", id: id})
	return r.err(id)
}

func (r *recActuator) RemoveItemAt(id string, slot int) error {
	r.calls = append(r.calls, call{op: "remove", id: id, slot: slot})
	return r.err(id)
}

func (r *recActuator) StripEnchantment(id string, slot int, _ string) error {
	r.calls = append(r.calls, call{op: "strip", id: id, slot: slot})
	return r.err(id)
}

func (r *recActuator) SetRotation(id string, _ model.Rotation) error {
	r.calls = append(r.calls, call{op: "rotate", id: id})
	return r.err(id)
}

func (r *recActuator) ResyncBlock(id string, _ geom.BlockPos) error {
	r.calls = append(r.calls, call{op: "resync", id: id})
	return r.err(id)
}

func TestRepositionWithImpulseAndReapply(t *testing.T) {
	h := &recActuator{}
	a := NewActuator(h, nil)
	c := Reposition(geom.Vec3{0, 64, 0})
	c.Impulse = geom.Vec3{0, 0, -4}
	c.ReapplyTicks = 2

	fired := 0
	if err := a.Apply("p1", 10, c, func() { fired++ }); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(h.calls) != 2 || h.calls[0].op != "teleport" || h.calls[1].op != "impulse" {
		t.Fatalf("calls=%+v", h.calls)
	}
	if h.calls[1].h != (geom.Vec2{0, -4}) {
		t.Fatalf("horizontal=%v", h.calls[1].h)
	}
	if a.Sched.Pending() != 2 {
		t.Fatalf("pending=%d", a.Sched.Pending())
	}

	live := func(string) bool { return true }
	if res := a.Drain(10, live); res.Ran != 0 {
		t.Fatalf("nothing is due at tick 10: %+v", res)
	}
	a.Drain(11, live)
	a.Drain(12, live)
	if fired != 2 || len(h.calls) != 4 {
		t.Fatalf("fired=%d calls=%d", fired, len(h.calls))
	}
	if got := a.TakeApplied(); len(got) != 3 || !got[2].Reapplied || got[2].Tick != 12 {
		t.Fatalf("applied=%+v", got)
	}
	if a.TakeApplied() != nil {
		t.Fatalf("TakeApplied should clear")
	}
}

func TestDrainSkipsDepartedActors(t *testing.T) {
	s := NewScheduler()
	ran := map[string]int{}
	for _, id := range []string{"a", "b"} {
		id := id
		s.Schedule(id, 5, "x", func() error { ran[id]++; return nil })
	}
	res := s.Drain(5, func(id string) bool { return id != "b" })
	if res.Ran != 1 || res.Skipped != 1 || ran["b"] != 0 || ran["a"] != 1 {
		t.Fatalf("res=%+v ran=%v", res, ran)
	}
}

func TestDrainOrderAndForget(t *testing.T) {
	s := NewScheduler()
	var order []string
	add := func(id string, tick uint64) {
		s.Schedule(id, tick, "x", func() error { order = append(order, id); return nil })
	}
	add("c", 3)
	add("b", 2)
	add("a", 3)
	add("z", 2)
	add("gone", 1)
	if n := s.Forget("gone"); n != 1 || s.PendingFor("gone") != 0 {
		t.Fatalf("forget=%d", n)
	}
	s.Drain(3, nil)
	want := []string{"b", "z", "a", "c"}
	if len(order) != len(want) {
		t.Fatalf("order=%v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order=%v want %v", order, want)
		}
	}
}

func TestSendWrapsHostErrors(t *testing.T) {
	h := &recActuator{gone: map[string]bool{"p": true}}
	err := Send(h, "p", Cancel())
	if !errors.Is(err, host.ErrActorGone) {
		t.Fatalf("err=%v", err)
	}
	if err := Send(h, "p", &Correction{Kind: "bogus"}); err == nil {
		t.Fatalf("unknown kind should fail")
	}
}

func TestApplyToUpdatesWorkingSnapshot(t *testing.T) {
	s := model.Snapshot{
		Pos:          geom.Vec3{5, 64, 5},
		SelectedSlot: 0,
		Inventory: []model.ItemStack{{ID: "DIAMOND_SWORD", Amount: 1, Enchantments: []model.Enchantment{
			{ID: "sharpness", Level: 9}, {ID: "unbreaking", Level: 1},
		}}},
	}
	moved := Reposition(geom.Vec3{0, 64, 0}).ApplyTo(s)
	if moved.Pos != (geom.Vec3{0, 64, 0}) || s.Pos != (geom.Vec3{5, 64, 5}) {
		t.Fatalf("reposition leaked into source snapshot")
	}
	stripped := StripEnchantment(0, "sharpness").ApplyTo(s)
	if len(stripped.Inventory[0].Enchantments) != 1 || len(s.Inventory[0].Enchantments) != 2 {
		t.Fatalf("strip: %+v / %+v", stripped.Inventory[0], s.Inventory[0])
	}
	if _, ok := ClearSlot(0).ApplyTo(s).Held(); ok {
		t.Fatalf("cleared slot still held")
	}
}
