package worldtest

import (
	"testing"

	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
)

var spawn = geom.Vec3{2.5, 64, 0.5}

func TestTeleportIsFlaggedAndPushedBack(t *testing.T) {
	h := NewHarness(t, Only(model.KindSpeedTeleport))
	s := h.Join("walker")

	h.Move(s, spawn, geom.Vec3{})
	res := h.Move(s, geom.Vec3{12.5, 64, 0.5}, geom.Vec3{})
	if !HasKind(res.Detections, model.KindSpeedTeleport) {
		t.Fatalf("detections=%+v", res.Detections)
	}
	var imp *[3]float64
	for _, c := range s.Corrections {
		if c.Tick == res.Tick && c.Kind == protocol.CorrImpulse {
			imp = c.Impulse
		}
	}
	if imp == nil || *imp != [3]float64{-10, 0, 0} {
		t.Fatalf("impulse=%v corrections=%+v", imp, s.Corrections)
	}
}

func TestWalkingThroughWallIsReverted(t *testing.T) {
	h := NewHarness(t, Only(model.KindPhaseGeometric))
	s := h.Join("ghost")
	for _, p := range []geom.BlockPos{{X: 2, Y: 64, Z: 1}, {X: 2, Y: 65, Z: 1}} {
		if err := h.W.DebugSetBlock(p, "STONE"); err != nil {
			t.Fatalf("set block: %v", err)
		}
	}

	h.Move(s, spawn, geom.Vec3{})
	res := h.Move(s, geom.Vec3{2.5, 64, 2.5}, geom.Vec3{0, 0, 2})
	if !HasKind(res.Detections, model.KindPhaseGeometric) {
		t.Fatalf("detections=%+v", res.Detections)
	}
	if got := s.LastObs().Self.Pos; got != [3]float64(spawn) {
		t.Fatalf("obs pos=%v want %v", got, spawn)
	}
	kinds := s.CorrectionKinds(res.Tick)
	if len(kinds) != 2 || kinds[0] != protocol.CorrTeleport || kinds[1] != protocol.CorrImpulse {
		t.Fatalf("corrections at %d: %v", res.Tick, kinds)
	}

	// The push is reapplied on the next two ticks.
	for i := 0; i < 2; i++ {
		r := h.Idle()
		if k := s.CorrectionKinds(r.Tick); len(k) != 1 || k[0] != protocol.CorrImpulse {
			t.Fatalf("tick %d corrections=%v", r.Tick, k)
		}
	}
	if n := h.W.DebugPendingCorrections(); n != 0 {
		t.Fatalf("pending=%d", n)
	}
}

func TestBreakOutOfReachIsBlockedAndResynced(t *testing.T) {
	h := NewHarness(t, Only(model.KindReachBreak))
	s := h.Join("miner")
	far := geom.BlockPos{X: 2, Y: 63, Z: 20}
	before, err := h.W.DebugBlock(far)
	if err != nil {
		t.Fatalf("block: %v", err)
	}

	res := h.Act(s, protocol.ActionReq{ID: "b1", Type: protocol.ActBreak, BlockPos: [3]int{far.X, far.Y, far.Z}})
	r, ok := s.Result("b1")
	if !ok || r["ok"] != false || r["code"] != protocol.ErrBlocked {
		t.Fatalf("result=%v", r)
	}
	if !HasKind(res.Detections, model.KindReachBreak) {
		t.Fatalf("detections=%+v", res.Detections)
	}
	if k := s.CorrectionKinds(res.Tick); len(k) != 1 || k[0] != protocol.CorrCancel {
		t.Fatalf("corrections=%v", k)
	}

	next := h.Idle()
	var resync *protocol.CorrectionMsg
	for i := range s.Corrections {
		if s.Corrections[i].Tick == next.Tick && s.Corrections[i].Kind == protocol.CorrBlock {
			resync = &s.Corrections[i]
		}
	}
	if resync == nil || resync.BlockID != before || *resync.BlockPos != [3]int{far.X, far.Y, far.Z} {
		t.Fatalf("resync=%+v", resync)
	}
	if after, _ := h.W.DebugBlock(far); after != before {
		t.Fatalf("block changed: %s -> %s", before, after)
	}

	h.Act(s, protocol.ActionReq{ID: "b2", Type: protocol.ActBreak, BlockPos: [3]int{3, 63, 0}})
	if r, _ := s.Result("b2"); r["ok"] != true {
		t.Fatalf("near break result=%v", r)
	}
	if got, _ := h.W.DebugBlock(geom.BlockPos{X: 3, Y: 63, Z: 0}); got != "AIR" {
		t.Fatalf("block after break=%s", got)
	}
}

func TestSpawnProtectionHonoursOperatorTag(t *testing.T) {
	h := NewHarness(t, Only(model.KindSpawnProtection))
	plain := h.Join("plain")
	op := h.Join("admin", "op")

	h.Act(plain, protocol.ActionReq{ID: "p", Type: protocol.ActBreak, BlockPos: [3]int{3, 63, 0}})
	if r, _ := plain.Result("p"); r["code"] != protocol.ErrBlocked {
		t.Fatalf("plain result=%v", r)
	}
	if got, _ := h.W.DebugBlock(geom.BlockPos{X: 3, Y: 63, Z: 0}); got != "GRASS" {
		t.Fatalf("protected block=%s", got)
	}

	h.Act(op, protocol.ActionReq{ID: "o", Type: protocol.ActBreak, BlockPos: [3]int{4, 63, 0}})
	if r, _ := op.Result("o"); r["ok"] != true {
		t.Fatalf("op result=%v", r)
	}
}

func TestGameModeChangeNeedsOperator(t *testing.T) {
	h := NewHarness(t, Only(model.KindGameModeChange))
	plain := h.Join("plain")
	op := h.Join("admin", "op")

	res := h.Act(plain, protocol.ActionReq{ID: "g", Type: protocol.ActGameMode, GameMode: "creative"})
	if r, _ := plain.Result("g"); r["code"] != protocol.ErrNoPermission {
		t.Fatalf("plain result=%v", r)
	}
	if !HasKind(res.Detections, model.KindGameModeChange) {
		t.Fatalf("detections=%+v", res.Detections)
	}
	if gm := plain.LastObs().Self.GameMode; gm != "survival" {
		t.Fatalf("plain gamemode=%s", gm)
	}

	h.Act(op, protocol.ActionReq{ID: "g", Type: protocol.ActGameMode, GameMode: "creative"})
	if gm := op.LastObs().Self.GameMode; gm != "creative" {
		t.Fatalf("op gamemode=%s", gm)
	}
}

func TestIllegalNameIsRefused(t *testing.T) {
	h := NewHarness(t, Only(model.KindIllegalName))
	jr := h.TryJoin("bad\tname")
	if jr.Welcome.ActorID != "" || jr.Code != protocol.ErrIllegalName {
		t.Fatalf("join=%+v", jr)
	}
	if s := h.Join("fine"); s.Welcome.SessionID == "" {
		t.Fatalf("missing session id")
	}
}

func TestBannedItemIsRemoved(t *testing.T) {
	h := NewHarness(t, Only(model.KindItemLegality))
	s := h.Join("hoarder")
	st := h.State(spawn, geom.Vec3{})
	st.Inventory = []protocol.ItemStack{{Item: "tile.bedrock", Count: 1}}
	res := h.Send(s, st)
	if !HasKind(res.Detections, model.KindItemLegality) {
		t.Fatalf("detections=%+v", res.Detections)
	}
	if k := s.CorrectionKinds(res.Tick); len(k) != 1 || k[0] != protocol.CorrRemoveItem {
		t.Fatalf("corrections=%v", k)
	}
	snap, _ := h.W.DebugActor(s.ActorID)
	if !snap.Inventory[0].Empty() {
		t.Fatalf("slot 0 still holds %+v", snap.Inventory[0])
	}
}

func TestInapplicableEnchantmentIsStripped(t *testing.T) {
	h := NewHarness(t, Only(model.KindInventoryEnchant))
	s := h.Join("enchanter")
	st := h.State(spawn, geom.Vec3{})
	st.Inventory = make([]protocol.ItemStack, 4)
	st.Inventory[3] = protocol.ItemStack{Item: "DIAMOND_PICKAXE", Count: 1, Enchantments: []protocol.Enchantment{
		{ID: "efficiency", Level: 5}, {ID: "sharpness", Level: 5},
	}}
	res := h.Send(s, st)
	var strip *protocol.CorrectionMsg
	for i := range s.Corrections {
		if s.Corrections[i].Tick == res.Tick && s.Corrections[i].Kind == protocol.CorrStripEnchantment {
			strip = &s.Corrections[i]
		}
	}
	if strip == nil || *strip.Slot != 3 || strip.Enchantment != "sharpness" {
		t.Fatalf("strip=%+v", strip)
	}
	snap, _ := h.W.DebugActor(s.ActorID)
	if ench := snap.Inventory[3].Enchantments; len(ench) != 1 || ench[0].ID != "efficiency" {
		t.Fatalf("enchantments=%+v", ench)
	}
}

func TestAttackThroughWallIsBlocked(t *testing.T) {
	h := NewHarness(t, Only(model.KindThroughWall))
	s := h.Join("fighter")
	st := h.State(spawn, geom.Vec3{})
	st.Rot = protocol.Rotation{Yaw: -90} // facing +X, towards the zombie
	h.Send(s, st)

	h.Act(s, protocol.ActionReq{ID: "a1", Type: protocol.ActAttack, TargetID: "N1"})
	if r, _ := s.Result("a1"); r["ok"] != true {
		t.Fatalf("clear attack result=%v", r)
	}

	if err := h.W.DebugSetBlock(geom.BlockPos{X: 4, Y: 65, Z: 0}, "GLASS"); err != nil {
		t.Fatalf("set block: %v", err)
	}
	res := h.Act(s, protocol.ActionReq{ID: "a2", Type: protocol.ActAttack, TargetID: "N1"})
	if r, _ := s.Result("a2"); r["code"] != protocol.ErrBlocked {
		t.Fatalf("walled attack result=%v", r)
	}
	if !HasKind(res.Detections, model.KindThroughWall) {
		t.Fatalf("detections=%+v", res.Detections)
	}

	h.Act(s, protocol.ActionReq{ID: "a3", Type: protocol.ActAttack, TargetID: "N99"})
	if r, _ := s.Result("a3"); r["code"] != protocol.ErrInvalidTarget {
		t.Fatalf("unknown target result=%v", r)
	}
}

func TestStaleStateIsRejected(t *testing.T) {
	h := NewHarness(t, Only(model.KindSpeedTeleport))
	s := h.Join("lagger")
	st := h.State(spawn, geom.Vec3{})
	st.Tick += 5
	h.Send(s, st)
	evs := s.LastObs().Events
	if len(evs) != 1 || evs[0]["type"] != "STATE_REJECTED" || evs[0]["code"] != protocol.ErrStale {
		t.Fatalf("events=%v", evs)
	}
}

func TestPlaceChecksSightOnClickedBlock(t *testing.T) {
	h := NewHarness(t, Only(model.KindThroughWall, model.KindReachInteract))
	s := h.Join("builder")
	st := h.State(spawn, geom.Vec3{})
	st.Rot = protocol.Rotation{Yaw: 0, Pitch: 60} // looking down at (2,63,1)
	st.Inventory = []protocol.ItemStack{{Item: "DIRT", Count: 4}}
	h.Send(s, st)

	h.Act(s, protocol.ActionReq{ID: "p1", Type: protocol.ActPlace, BlockID: "DIRT",
		BlockPos: [3]int{2, 64, 1}, Against: &[3]int{2, 63, 1}})
	if r, _ := s.Result("p1"); r["ok"] != true {
		t.Fatalf("place on looked-at block result=%v", r)
	}
	if got, _ := h.W.DebugBlock(geom.BlockPos{X: 2, Y: 64, Z: 1}); got != "DIRT" {
		t.Fatalf("placed block=%s", got)
	}

	res := h.Act(s, protocol.ActionReq{ID: "p2", Type: protocol.ActPlace, BlockID: "DIRT",
		BlockPos: [3]int{3, 64, 3}, Against: &[3]int{3, 63, 3}})
	if r, _ := s.Result("p2"); r["code"] != protocol.ErrBlocked {
		t.Fatalf("place against unseen block result=%v", r)
	}
	if !HasKind(res.Detections, model.KindThroughWall) {
		t.Fatalf("detections=%+v", res.Detections)
	}

	h.Act(s, protocol.ActionReq{ID: "p3", Type: protocol.ActPlace, BlockID: "DIRT", BlockPos: [3]int{2, 65, 1}})
	if r, _ := s.Result("p3"); r["code"] != protocol.ErrBadRequest {
		t.Fatalf("place without against result=%v", r)
	}
	h.Act(s, protocol.ActionReq{ID: "p4", Type: protocol.ActPlace, BlockID: "DIRT",
		BlockPos: [3]int{2, 66, 1}, Against: &[3]int{2, 63, 1}})
	if r, _ := s.Result("p4"); r["code"] != protocol.ErrBadRequest {
		t.Fatalf("place against a distant block result=%v", r)
	}
}

func TestTeleportIsFlaggedWithFrozenClientClock(t *testing.T) {
	h := NewHarness(t, Only(model.KindSpeedTeleport))
	s := h.Join("clockfreezer")

	st := h.State(spawn, geom.Vec3{})
	st.TimeMs = 1000
	h.Send(s, st)
	st = h.State(geom.Vec3{40.5, 64, 0.5}, geom.Vec3{})
	st.TimeMs = 1000
	res := h.Send(s, st)
	ev, ok := firstOf(res.Detections, model.KindSpeedTeleport)
	if !ok {
		t.Fatalf("detections=%+v", res.Detections)
	}
	if ev.Evidence["client_time_ms"] != int64(1000) {
		t.Fatalf("evidence=%v", ev.Evidence)
	}

	// A rewound clock does not hide the next jump either.
	st = h.State(geom.Vec3{80.5, 64, 0.5}, geom.Vec3{})
	st.TimeMs = 10
	if res := h.Send(s, st); !HasKind(res.Detections, model.KindSpeedTeleport) {
		t.Fatalf("rewound clock: detections=%+v", res.Detections)
	}
}

func firstOf(events []model.DetectionEvent, k model.Kind) (model.DetectionEvent, bool) {
	for _, e := range events {
		if e.Kind == k {
			return e, true
		}
	}
	return model.DetectionEvent{}, false
}
