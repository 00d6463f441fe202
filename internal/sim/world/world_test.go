package world

import (
	"errors"
	"math"
	"testing"
	"time"

	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/sim/catalogs"
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/tuning"
)

type memTickLog struct{ entries []TickLogEntry }

func (m *memTickLog) WriteTick(e TickLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type memCorrections struct{ applied []correct.Applied }

func (m *memCorrections) WriteCorrections(_ uint64, a []correct.Applied) error {
	m.applied = append(m.applied, a...)
	return nil
}

type memSessions struct{ started, ended []string }

func (m *memSessions) SessionStarted(_, actorID, _ string, _ uint64) {
	m.started = append(m.started, actorID)
}
func (m *memSessions) SessionEnded(actorID string, _ uint64) { m.ended = append(m.ended, actorID) }

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tun := tuning.Defaults()
	w, err := New(WorldConfig{ID: "t", TickRateHz: 20, Seed: 7, BoundaryR: 256, SurfaceY: 63, EyeHeight: 1.62}, cats, Options{Config: tun})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return w
}

func joinOne(t *testing.T, w *World, name string) string {
	t.Helper()
	resp := make(chan JoinResponse, 1)
	w.StepOnce([]JoinRequest{{Name: name, Out: make(chan []byte, 64), Resp: resp}}, nil, nil, nil)
	jr := <-resp
	if jr.Welcome.ActorID == "" {
		t.Fatalf("join refused: %+v", jr)
	}
	return jr.Welcome.ActorID
}

func TestActuatorReportsGoneActors(t *testing.T) {
	w := newTestWorld(t)
	act := &actuator{w: w}
	err := act.Teleport("A404", geom.Vec3{}, host.TeleportOptions{})
	if !errors.Is(err, host.ErrActorGone) {
		t.Fatalf("err=%v", err)
	}
	if err := act.ApplyImpulse("A404", geom.Vec2{1, 0}, 0); !errors.Is(err, host.ErrActorGone) {
		t.Fatalf("impulse err=%v", err)
	}
}

func TestActuatorMutatesActorAndQueuesCorrections(t *testing.T) {
	w := newTestWorld(t)
	id := joinOne(t, w, "p")
	act := &actuator{w: w}
	a := w.actors[id]
	a.Vel = geom.Vec3{1, 0, 0}
	a.Inventory[2] = model.ItemStack{ID: "DIAMOND_SWORD", Amount: 1}

	rot := model.Rotation{Yaw: 45}
	if err := act.Teleport(id, geom.Vec3{1, 70, 1}, host.TeleportOptions{Rotation: &rot}); err != nil {
		t.Fatalf("teleport: %v", err)
	}
	if a.Pos != (geom.Vec3{1, 70, 1}) || a.Vel != (geom.Vec3{}) || a.Rot != rot {
		t.Fatalf("actor after teleport: pos=%v vel=%v rot=%v", a.Pos, a.Vel, a.Rot)
	}
	if err := act.ApplyImpulse(id, geom.Vec2{2, -1}, 0.5); err != nil {
		t.Fatalf("impulse: %v", err)
	}
	if a.Vel != (geom.Vec3{2, 0.5, -1}) {
		t.Fatalf("vel=%v", a.Vel)
	}
	if err := act.RemoveItemAt(id, 2); err != nil || !a.Inventory[2].Empty() {
		t.Fatalf("remove: err=%v slot=%+v", err, a.Inventory[2])
	}
	if err := act.RemoveItemAt(id, 99); err == nil {
		t.Fatalf("expected range error")
	}
	if err := act.ResyncBlock(id, geom.BlockPos{X: 0, Y: 63, Z: 0}); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if n := len(w.clients[id].pending); n != 4 {
		t.Fatalf("pending messages=%d", n)
	}
}

func TestLeaveDropsActorAndLogsSession(t *testing.T) {
	w := newTestWorld(t)
	sess := &memSessions{}
	w.SetSessionLogger(sess)
	id := joinOne(t, w, "p")
	w.StepOnce(nil, []string{id}, nil, nil)
	if _, ok := w.DebugActor(id); ok {
		t.Fatalf("actor still present")
	}
	if w.engine.Live(id) {
		t.Fatalf("engine still tracks %s", id)
	}
	if len(sess.started) != 1 || len(sess.ended) != 1 || sess.ended[0] != id {
		t.Fatalf("sessions=%+v", sess)
	}
}

func TestTickLogCarriesInputsAndDigests(t *testing.T) {
	w := newTestWorld(t)
	tl := &memTickLog{}
	cl := &memCorrections{}
	w.SetTickLogger(tl)
	w.SetCorrectionLogger(cl)
	id := joinOne(t, w, "p")

	st := func(x float64) StateEnvelope {
		tick := w.CurrentTick()
		return StateEnvelope{ActorID: id, State: protocol.StateMsg{
			Type: protocol.TypeState, ProtocolVersion: protocol.Version,
			Tick: tick, TimeMs: int64(tick) * 50, Pos: [3]float64{x, 64, 0.5},
			Status: protocol.Status{OnGround: true},
		}}
	}
	w.StepOnce(nil, nil, []StateEnvelope{st(2.5)}, nil)
	res := w.StepOnce(nil, nil, []StateEnvelope{st(14.5)}, nil)

	last := tl.entries[len(tl.entries)-1]
	if last.Tick != res.Tick || last.Digest != res.Digest || last.DetectionDigest != res.DetectionDigest {
		t.Fatalf("log entry %+v does not match step %+v", last, res)
	}
	if len(last.States) != 1 || len(last.Detections) == 0 {
		t.Fatalf("entry states=%d detections=%d", len(last.States), len(last.Detections))
	}
	if len(tl.entries[0].Joins) != 1 || tl.entries[0].Joins[0].ActorID != id {
		t.Fatalf("join not recorded: %+v", tl.entries[0])
	}
	if len(cl.applied) == 0 {
		t.Fatalf("corrections not logged")
	}
}

func TestNonFiniteStateIsRejected(t *testing.T) {
	w := newTestWorld(t)
	id := joinOne(t, w, "p")
	a := w.actors[id]
	before := a.Pos
	inf := [3]float64{math.Inf(1), 64, 0}
	ok := w.acceptState(a, protocol.StateMsg{Tick: w.CurrentTick(), Pos: inf}, w.CurrentTick())
	if ok || a.Pos != before {
		t.Fatalf("accepted non-finite state")
	}
}

func TestTPSMonitorKeepsLastWindow(t *testing.T) {
	m := NewTPSMonitor(4)
	start := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		m.Observe(start.Add(time.Duration(i)*50*time.Millisecond), 2*time.Millisecond)
	}
	st := m.Stats()
	if st.Samples != 4 {
		t.Fatalf("samples=%d", st.Samples)
	}
	if st.AvgMs != 50 || st.TPS != 20 {
		t.Fatalf("avg=%v tps=%v", st.AvgMs, st.TPS)
	}
	if st.StepMaxMs != 2 {
		t.Fatalf("step max=%v", st.StepMaxMs)
	}
	if empty := NewTPSMonitor(4).Stats(); empty.Samples != 0 || empty.TPS != 0 {
		t.Fatalf("empty=%+v", empty)
	}
}
