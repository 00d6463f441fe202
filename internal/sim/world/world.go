package world

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/sim/catalogs"
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/engine"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/voxel"
)

type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64
	BoundaryR  int
	SurfaceY   int
	EyeHeight  float64
	// NPCs are spawned when the world is created.
	NPCs []NPCSpec
}

type JoinRequest struct {
	Name      string
	InputMode string
	// Tags are granted by the server (operator lists), never by the client.
	Tags []string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	// Code is set when the join was refused.
	Code    string
	Message string
}

type StateEnvelope struct {
	ActorID string
	State   protocol.StateMsg
}

type ActionEnvelope struct {
	ActorID string
	Act     protocol.ActMsg
}

type RecordedJoin struct {
	ActorID   string   `json:"actor_id"`
	Name      string   `json:"name"`
	InputMode string   `json:"input_mode,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Refused   bool     `json:"refused,omitempty"`
}

type RecordedState struct {
	ActorID string            `json:"actor_id"`
	State   protocol.StateMsg `json:"state"`
}

type RecordedAction struct {
	ActorID string          `json:"actor_id"`
	Act     protocol.ActMsg `json:"act"`
}

type TickLogEntry struct {
	Tick            uint64                 `json:"tick"`
	Joins           []RecordedJoin         `json:"joins,omitempty"`
	Leaves          []string               `json:"leaves,omitempty"`
	States          []RecordedState        `json:"states,omitempty"`
	Actions         []RecordedAction       `json:"actions,omitempty"`
	Detections      []model.DetectionEvent `json:"detections,omitempty"`
	Digest          string                 `json:"digest"`
	DetectionDigest string                 `json:"detection_digest"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// CorrectionLogger receives every correction that reached an actor.
type CorrectionLogger interface {
	WriteCorrections(tick uint64, applied []correct.Applied) error
}

// SessionLogger is told about joins and leaves.
type SessionLogger interface {
	SessionStarted(sessionID, actorID, name string, tick uint64)
	SessionEnded(actorID string, tick uint64)
}

type Options struct {
	Config host.ConfigProvider
	Sink   host.FlagSink
	Logger *log.Logger
}

type clientState struct {
	Out     chan []byte
	pending [][]byte
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	logger   *log.Logger

	tick atomic.Uint64

	chunks *voxel.Store
	engine *engine.Engine

	actors  map[string]*Actor
	npcs    map[string]*NPC
	clients map[string]*clientState

	inbox  chan ActionEnvelope
	states chan StateEnvelope
	join   chan JoinRequest
	leave  chan string
	stop   chan struct{}

	nextActorNum atomic.Uint64

	// Per-tick buffers, reset by step.
	events     map[string][]protocol.Event
	detections []model.DetectionEvent

	tickLogger TickLogger
	corrLogger CorrectionLogger
	sessLogger SessionLogger

	tps *TPSMonitor
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, o Options) (*World, error) {
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("tick_rate_hz must be > 0")
	}
	gen, err := voxel.NewGen(cats, cfg.Seed, cfg.BoundaryR, cfg.SurfaceY)
	if err != nil {
		return nil, err
	}

	w := &World{
		cfg:      cfg,
		catalogs: cats,
		logger:   o.Logger,
		chunks:   voxel.NewStore(gen, cats),
		actors:   map[string]*Actor{},
		npcs:     map[string]*NPC{},
		clients:  map[string]*clientState{},
		inbox:    make(chan ActionEnvelope, 1024),
		states:   make(chan StateEnvelope, 1024),
		join:     make(chan JoinRequest, 64),
		leave:    make(chan string, 64),
		stop:     make(chan struct{}),
		events:   map[string][]protocol.Event{},
		tps:      NewTPSMonitor(20),
	}
	for _, spec := range cfg.NPCs {
		w.spawnNPC(spec)
	}

	sink := host.MultiSink{host.FlagSinkFunc(w.collectDetection)}
	if o.Sink != nil {
		sink = append(sink, o.Sink)
	}
	w.engine = engine.New(engine.Options{
		World:    probe{w},
		Config:   o.Config,
		Sink:     sink,
		Actuator: &actuator{w: w},
		Items:    cats,
		Logger:   o.Logger,
	})
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)             { w.tickLogger = l }
func (w *World) SetCorrectionLogger(l CorrectionLogger) { w.corrLogger = l }
func (w *World) SetSessionLogger(l SessionLogger)       { w.sessLogger = l }

func (w *World) Inbox() chan<- ActionEnvelope { return w.inbox }
func (w *World) States() chan<- StateEnvelope { return w.states }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// TPS is safe to call from any goroutine.
func (w *World) TPS() TPSStats { return w.tps.Stats() }

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingStates []StateEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.states:
			pendingStates = append(pendingStates, env)
		case env := <-w.inbox:
			pendingActions = append(pendingActions, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingStates, pendingActions)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingStates = pendingStates[:0]
			pendingActions = pendingActions[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

func (w *World) joinActor(req JoinRequest, nowTick uint64) (JoinResponse, RecordedJoin) {
	name := req.Name
	if name == "" {
		name = "actor"
	}
	idNum := w.nextActorNum.Add(1)
	actorID := fmt.Sprintf("A%d", idNum)
	rec := RecordedJoin{ActorID: actorID, Name: name, InputMode: req.InputMode, Tags: req.Tags}

	if _, err := w.engine.OnJoin(actorID, name, nowTick); err != nil {
		w.logf("join refused name=%q err=%v", name, err)
		rec.Refused = true
		return JoinResponse{Code: protocol.ErrIllegalName, Message: err.Error()}, rec
	}

	// Spread spawns along x so actors do not stack.
	spawn := geom.Vec3{float64(int(idNum)*2) + 0.5, float64(w.cfg.SurfaceY + 1), 0.5}
	a := newActor(actorID, name, spawn)
	a.Input = model.InputMode(req.InputMode)
	a.Tags = append([]string(nil), req.Tags...)
	a.SessionID = uuid.NewString()
	w.actors[actorID] = a
	if req.Out != nil {
		w.clients[actorID] = &clientState{Out: req.Out}
	}
	if w.sessLogger != nil {
		w.sessLogger.SessionStarted(a.SessionID, actorID, name, nowTick)
	}

	return JoinResponse{Welcome: w.welcome(a)}, rec
}

func (w *World) welcome(a *Actor) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       a.SessionID,
		ActorID:         a.ID,
		Spawn:           a.Pos,
		GameMode:        string(a.GameMode),
		WorldParams: protocol.WorldParams{
			TickRateHz: w.cfg.TickRateHz,
			ChunkSize:  [3]int{voxel.ChunkSize, w.chunks.Gen().Height, voxel.ChunkSize},
			SurfaceY:   w.cfg.SurfaceY,
			BoundaryR:  w.cfg.BoundaryR,
			EyeHeight:  w.cfg.EyeHeight,
			Seed:       w.cfg.Seed,
		},
		Catalogs: protocol.CatalogDigests{
			BlockPalette:       protocol.DigestRef{Digest: w.catalogs.Blocks.PaletteDigest, Count: len(w.catalogs.Blocks.Palette)},
			ItemPalette:        protocol.DigestRef{Digest: w.catalogs.Items.PaletteDigest, Count: len(w.catalogs.Items.Palette)},
			EnchantmentsDigest: w.catalogs.Enchantments.Digest,
		},
	}
}

func (w *World) handleLeave(actorID string, nowTick uint64) {
	delete(w.actors, actorID)
	delete(w.clients, actorID)
	w.engine.OnLeave(actorID)
	if w.sessLogger != nil {
		w.sessLogger.SessionEnded(actorID, nowTick)
	}
}

func (w *World) step(joins []JoinRequest, leaves []string, states []StateEnvelope, actions []ActionEnvelope) {
	start := time.Now()
	nowTick := w.tick.Load()
	w.events = map[string][]protocol.Event{}
	w.detections = w.detections[:0]

	// Apply leaves and joins deterministically at tick boundary.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := w.actors[id]; ok {
			w.handleLeave(id, nowTick)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp, rec := w.joinActor(req, nowTick)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, rec)
	}

	// Client states in receive order; the last one per actor wins.
	recordedStates := make([]RecordedState, 0, len(states))
	fresh := map[string]bool{}
	for _, env := range states {
		a := w.actors[env.ActorID]
		if a == nil {
			continue
		}
		if !w.acceptState(a, env.State, nowTick) {
			continue
		}
		recordedStates = append(recordedStates, RecordedState{ActorID: env.ActorID, State: env.State})
		fresh[env.ActorID] = true
	}

	snaps := make([]model.Snapshot, 0, len(fresh))
	for _, a := range w.sortedActors() {
		if fresh[a.ID] {
			snaps = append(snaps, a.Snapshot(nowTick))
		}
	}
	res := w.engine.Tick(nowTick, snaps)
	for id, final := range res.Final {
		if a := w.actors[id]; a != nil {
			a.adopt(final)
		}
	}
	if w.corrLogger != nil && len(res.Corrections) > 0 {
		if err := w.corrLogger.WriteCorrections(nowTick, res.Corrections); err != nil {
			w.logf("tick=%d write corrections: %v", nowTick, err)
		}
	}

	// Actions run after movement so guards see this tick's corrected pose.
	recorded := make([]RecordedAction, 0, len(actions))
	for _, env := range actions {
		a := w.actors[env.ActorID]
		if a == nil {
			continue
		}
		env.Act.ActorID = env.ActorID // trust session identity
		recorded = append(recorded, RecordedAction{ActorID: env.ActorID, Act: env.Act})
		w.applyAct(a, env.Act, nowTick)
	}

	w.flushClients(nowTick)

	digest := w.stateDigest(nowTick)
	detDigest := detectionDigest(w.detections)
	if w.tickLogger != nil {
		entry := TickLogEntry{
			Tick:            nowTick,
			Joins:           recordedJoins,
			Leaves:          recordedLeaves,
			States:          recordedStates,
			Actions:         recorded,
			Detections:      append([]model.DetectionEvent(nil), w.detections...),
			Digest:          digest,
			DetectionDigest: detDigest,
		}
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.logf("tick=%d write tick log: %v", nowTick, err)
		}
	}

	w.tps.Observe(start, time.Since(start))
	w.tick.Add(1)
}

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, states []StateEnvelope, actions []ActionEnvelope) StepResult {
	tick := w.tick.Load()
	w.step(joins, leaves, states, actions)
	return StepResult{
		Tick:            tick,
		Digest:          w.stateDigest(tick),
		Detections:      append([]model.DetectionEvent(nil), w.detections...),
		DetectionDigest: detectionDigest(w.detections),
	}
}

type StepResult struct {
	Tick            uint64
	Digest          string
	Detections      []model.DetectionEvent
	DetectionDigest string
}

// tickTimeMs is the server clock at tick. It depends only on the tick so
// replays see the same sample timing.
func (w *World) tickTimeMs(tick uint64) int64 {
	return int64(tick) * 1000 / int64(w.cfg.TickRateHz)
}

// acceptState copies the client's claims into the actor record. States
// for ticks the server has not reached yet, or older than two ticks, are
// dropped.
func (w *World) acceptState(a *Actor, st protocol.StateMsg, nowTick uint64) bool {
	if st.Tick > nowTick || st.Tick+2 < nowTick {
		w.pushEvent(a.ID, protocol.Event{"t": nowTick, "type": "STATE_REJECTED", "code": protocol.ErrStale, "state_tick": st.Tick})
		return false
	}
	if !geom.Finite(vec(st.Pos)) || !geom.Finite(vec(st.Vel)) {
		w.pushEvent(a.ID, protocol.Event{"t": nowTick, "type": "STATE_REJECTED", "code": protocol.ErrBadRequest})
		return false
	}
	a.applyState(st, w.catalogs)
	a.TimeMs = w.tickTimeMs(nowTick)
	return true
}

func (w *World) collectDetection(ev model.DetectionEvent) {
	w.detections = append(w.detections, ev)
}

func (w *World) sortedActors() []*Actor {
	out := make([]*Actor, 0, len(w.actors))
	for _, a := range w.actors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) pushEvent(actorID string, e protocol.Event) {
	w.events[actorID] = append(w.events[actorID], e)
}

// queue buffers a message for the actor's client until the end of the tick.
func (w *World) queue(actorID string, v any) {
	cl := w.clients[actorID]
	if cl == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	cl.pending = append(cl.pending, b)
}

func (w *World) flushClients(nowTick uint64) {
	for _, a := range w.sortedActors() {
		cl := w.clients[a.ID]
		if cl == nil {
			continue
		}
		for _, b := range cl.pending {
			sendLatest(cl.Out, b)
		}
		cl.pending = cl.pending[:0]

		obs := w.buildObs(a, nowTick)
		b, err := json.Marshal(obs)
		if err != nil {
			continue
		}
		sendLatest(cl.Out, b)
	}
}

func (w *World) buildObs(a *Actor, nowTick uint64) protocol.ObsMsg {
	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		ActorID:         a.ID,
		Self: protocol.SelfObs{
			Pos:      a.Pos,
			Rot:      protocol.Rotation{Yaw: a.Rot.Yaw, Pitch: a.Rot.Pitch},
			GameMode: string(a.GameMode),
			Tags:     a.Tags,
		},
		Entities: []protocol.EntityObs{},
		Events:   w.events[a.ID],
	}
	if obs.Events == nil {
		obs.Events = []protocol.Event{}
	}
	near, _ := probe{w}.EntitiesNear(a.Pos, obsRadius, model.EntityFilter{ExcludeIDs: []string{a.ID}})
	for _, e := range near {
		obs.Entities = append(obs.Entities, protocol.EntityObs{ID: e.ID, Type: e.TypeID, Pos: e.Pos})
	}
	return obs
}

const obsRadius = 16

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func (w *World) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}
