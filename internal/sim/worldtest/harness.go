package worldtest

import (
	"encoding/json"
	"testing"

	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/sim/catalogs"
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/tuning"
	world "voxelguard.ai/internal/sim/world"
)

// Harness drives a world through its exported API only:
// - Join() issues a JoinRequest via StepOnce()
// - Move()/Act() feed STATE and ACT envelopes for one tick
// - per-actor Out channels are drained into OBS and CORRECTION lists
type Harness struct {
	T      *testing.T
	Cats   *catalogs.Catalogs
	Tuning tuning.Tuning
	W      *world.World

	sessions map[string]*Session
}

type Session struct {
	ActorID     string
	Welcome     protocol.WelcomeMsg
	Out         chan []byte
	Obs         []protocol.ObsMsg
	Corrections []protocol.CorrectionMsg
}

// Only returns the default tuning with every detector off except kinds.
func Only(kinds ...model.Kind) tuning.Tuning {
	t := tuning.Defaults()
	for name, d := range t.Detectors {
		d.Enabled = false
		t.Detectors[name] = d
	}
	for _, k := range kinds {
		d := t.Detectors[string(k)]
		d.Enabled = true
		t.Detectors[string(k)] = d
	}
	return t
}

func Config(t tuning.Tuning) world.WorldConfig {
	return world.WorldConfig{
		ID:         "test",
		TickRateHz: t.TickRateHz,
		Seed:       42,
		BoundaryR:  t.WorldBoundaryR,
		SurfaceY:   t.SurfaceY,
		EyeHeight:  t.EyeHeight,
		NPCs:       world.DefaultNPCs(t.SurfaceY),
	}
}

func NewHarness(t *testing.T, tun tuning.Tuning) *Harness {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := world.New(Config(tun), cats, world.Options{Config: tun})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, Cats: cats, Tuning: tun, W: w, sessions: map[string]*Session{}}
}

func (h *Harness) TryJoin(name string, tags ...string) world.JoinResponse {
	h.T.Helper()
	out := make(chan []byte, 256)
	resp := make(chan world.JoinResponse, 1)
	h.W.StepOnce([]world.JoinRequest{{Name: name, Tags: tags, Out: out, Resp: resp}}, nil, nil, nil)
	jr := <-resp
	if jr.Welcome.ActorID != "" {
		s := &Session{ActorID: jr.Welcome.ActorID, Welcome: jr.Welcome, Out: out}
		h.sessions[s.ActorID] = s
		h.drain()
	}
	return jr
}

func (h *Harness) Join(name string, tags ...string) *Session {
	h.T.Helper()
	jr := h.TryJoin(name, tags...)
	if jr.Welcome.ActorID == "" {
		h.T.Fatalf("join %q refused: %s %s", name, jr.Code, jr.Message)
	}
	return h.sessions[jr.Welcome.ActorID]
}

// State builds a STATE for the current tick with a 50ms clock.
func (h *Harness) State(pos, vel geom.Vec3) protocol.StateMsg {
	tick := h.W.CurrentTick()
	return protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		TimeMs:          int64(tick) * 50,
		Pos:             pos,
		Vel:             vel,
		Status:          protocol.Status{OnGround: true},
	}
}

func (h *Harness) Step(states []world.StateEnvelope, acts []world.ActionEnvelope) world.StepResult {
	h.T.Helper()
	res := h.W.StepOnce(nil, nil, states, acts)
	h.drain()
	return res
}

func (h *Harness) Idle() world.StepResult { return h.Step(nil, nil) }

func (h *Harness) Send(s *Session, st protocol.StateMsg) world.StepResult {
	return h.Step([]world.StateEnvelope{{ActorID: s.ActorID, State: st}}, nil)
}

func (h *Harness) Move(s *Session, pos, vel geom.Vec3) world.StepResult {
	return h.Send(s, h.State(pos, vel))
}

func (h *Harness) Act(s *Session, reqs ...protocol.ActionReq) world.StepResult {
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Tick:            h.W.CurrentTick(),
		Actions:         reqs,
	}
	return h.Step(nil, []world.ActionEnvelope{{ActorID: s.ActorID, Act: act}})
}

func (h *Harness) drain() {
	for _, s := range h.sessions {
		for {
			select {
			case b := <-s.Out:
				s.record(h.T, b)
				continue
			default:
			}
			break
		}
	}
}

func (s *Session) record(t *testing.T, b []byte) {
	base, err := protocol.DecodeBase(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	switch base.Type {
	case protocol.TypeObs:
		var o protocol.ObsMsg
		if err := json.Unmarshal(b, &o); err != nil {
			t.Fatalf("obs: %v", err)
		}
		s.Obs = append(s.Obs, o)
	case protocol.TypeCorrection:
		var c protocol.CorrectionMsg
		if err := json.Unmarshal(b, &c); err != nil {
			t.Fatalf("correction: %v", err)
		}
		s.Corrections = append(s.Corrections, c)
	}
}

func (s *Session) LastObs() protocol.ObsMsg {
	if len(s.Obs) == 0 {
		return protocol.ObsMsg{}
	}
	return s.Obs[len(s.Obs)-1]
}

// Result finds the ACTION_RESULT for ref in the latest OBS.
func (s *Session) Result(ref string) (protocol.Event, bool) {
	for _, e := range s.LastObs().Events {
		if e["type"] == "ACTION_RESULT" && e["ref"] == ref {
			return e, true
		}
	}
	return nil, false
}

// CorrectionKinds lists correction kinds received at tick.
func (s *Session) CorrectionKinds(tick uint64) []string {
	var out []string
	for _, c := range s.Corrections {
		if c.Tick == tick {
			out = append(out, c.Kind)
		}
	}
	return out
}

func HasKind(events []model.DetectionEvent, k model.Kind) bool {
	for _, e := range events {
		if e.Kind == k {
			return true
		}
	}
	return false
}
