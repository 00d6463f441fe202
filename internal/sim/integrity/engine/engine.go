// Package engine wires the integrity core together: one Tick call per world
// tick, plus hooks for joins, leaves and pre-commit interactions.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/config"
	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/detect"
	"voxelguard.ai/internal/sim/integrity/guard"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/integrity/samples"
	"voxelguard.ai/internal/sim/integrity/scratch"
	"voxelguard.ai/internal/sim/integrity/state"
)

var (
	ErrIllegalName = errors.New("illegal name")
	ErrNotJoined   = errors.New("actor not joined")
)

type Options struct {
	World    host.WorldProbe
	Config   host.ConfigProvider
	Sink     host.FlagSink
	Actuator host.EntityActuator
	Items    detect.ItemRules
	Logger   *log.Logger
}

type Engine struct {
	world  host.WorldProbe
	config host.ConfigProvider
	items  detect.ItemRules
	logger *log.Logger

	samples *samples.Buffer
	table   *scratch.Table
	act     *correct.Actuator
	pipe    *detect.Pipeline
	guard   *guard.Guard

	cfg  *config.Snapshot
	tick uint64
}

func New(o Options) *Engine {
	cfg := config.Load(o.Config)
	buf := samples.NewBuffer(cfg.WindowMs)
	act := correct.NewActuator(o.Actuator, o.Logger)
	return &Engine{
		world:   o.World,
		config:  o.Config,
		items:   o.Items,
		logger:  o.Logger,
		samples: buf,
		table:   scratch.NewTable(),
		act:     act,
		pipe:    detect.NewPipeline(o.Sink, act, buf, o.Logger),
		guard:   &guard.Guard{World: o.World, Sink: o.Sink, Act: act, Logger: o.Logger},
		cfg:     cfg,
	}
}

// Config is the snapshot in force for the current tick.
func (e *Engine) Config() *config.Snapshot { return e.cfg }

func (e *Engine) CurrentTick() uint64 { return e.tick }

// Record exposes an actor's scratch record for inspection.
func (e *Engine) Record(actorID string) (*scratch.Record, bool) { return e.table.Get(actorID) }

func (e *Engine) Live(actorID string) bool { return e.table.Live(actorID) }

// PendingTasks counts deferred corrections still queued.
func (e *Engine) PendingTasks() int { return e.act.Sched.Pending() }

// OnJoin vets the display name and creates the actor's scratch record.
func (e *Engine) OnJoin(actorID, name string, tick uint64) (guard.Decision, error) {
	d := e.guard.CheckName(e.cfg, tick, actorID, name)
	if d.Cancel {
		return d, fmt.Errorf("%w: %q", ErrIllegalName, name)
	}
	e.samples.Drop(actorID)
	e.table.Join(actorID, tick)
	return d, nil
}

// OnLeave destroys the actor's state. Pending deferred corrections for the
// actor are dropped.
func (e *Engine) OnLeave(actorID string) {
	e.table.Leave(actorID)
	e.samples.Drop(actorID)
	e.act.Forget(actorID)
}

// OnUseItem counts one use-item action towards the click rate.
func (e *Engine) OnUseItem(actorID string) {
	if r, ok := e.table.Get(actorID); ok {
		r.Click()
	}
}

type ActorFailure struct {
	ActorID string
	Err     error
}

type TickResult struct {
	Tick        uint64
	Events      []model.DetectionEvent
	Corrections []correct.Applied
	Failures    []ActorFailure
	// Final holds each processed actor's snapshot after corrections.
	Final map[string]model.Snapshot
	// Deferred reports tasks run and skipped at the start of the tick.
	Deferred correct.DrainResult
}

// Tick loads the config, runs due deferred tasks, then processes every
// joined actor in id order. A failing actor is logged and skipped.
func (e *Engine) Tick(tick uint64, snaps []model.Snapshot) TickResult {
	e.tick = tick
	e.cfg = config.Load(e.config)
	e.samples.SetWindowMs(e.cfg.WindowMs)
	res := TickResult{Tick: tick, Final: make(map[string]model.Snapshot, len(snaps))}
	res.Deferred = e.act.Drain(tick, e.table.Live)

	ordered := make([]model.Snapshot, len(snaps))
	copy(ordered, snaps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ActorID < ordered[j].ActorID })

	for _, s := range ordered {
		events, final, err := e.processActor(tick, s)
		if err != nil {
			res.Failures = append(res.Failures, ActorFailure{ActorID: s.ActorID, Err: err})
			if e.logger != nil {
				e.logger.Printf("actor=%s tick=%d err=%v", s.ActorID, tick, err)
			}
			continue
		}
		res.Events = append(res.Events, events...)
		res.Final[s.ActorID] = final
	}
	res.Corrections = e.act.TakeApplied()
	return res
}

func (e *Engine) processActor(tick uint64, s model.Snapshot) (events []model.DetectionEvent, final model.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	rec, ok := e.table.Get(s.ActorID)
	if !ok {
		return nil, s, ErrNotJoined
	}
	if !geom.Finite(s.Pos) || !geom.Finite(s.Vel) {
		return nil, s, fmt.Errorf("snapshot: %w", geom.ErrDegenerate)
	}
	s.Tick = tick

	window := e.samples.Push(s.ActorID, samples.Sample{TimeMs: s.TimeMs, Pos: s.Pos, Vel: s.Vel})
	analysis, aerr := samples.Analyze(window)

	in := &detect.Input{
		Tick:        tick,
		Snap:        s,
		Client:      s,
		State:       state.Compute(s, state.Probe(e.world, s.Pos)),
		Window:      window,
		Analysis:    analysis,
		AnalysisErr: aerr,
		Rec:         rec,
		Cfg:         e.cfg,
		World:       e.world,
		Items:       e.items,
	}
	in.PrevFeet, in.PrevHead, in.PrevRot = rec.Prev(s, e.cfg.EyeHeight)

	// Decay first so windows skipped while the actor sent nothing count.
	rec.DecayClicks(tick, uint64(e.cfg.Threshold(model.KindClickRate, "decay_ticks")))
	events = e.pipe.Evaluate(in)

	rec.EndTick(in.Snap, e.cfg.EyeHeight, detect.PitchDelta(in.PrevRot, in.Snap.Rot))
	return events, in.Snap, nil
}

// Interaction hooks. They use the config snapshot of the current tick.

func (e *Engine) BeforeBreak(who model.Snapshot, target geom.BlockPos) guard.Decision {
	return e.guard.BeforeBreak(e.cfg, e.tick, who, target)
}

func (e *Engine) BeforeInteract(who model.Snapshot, target geom.BlockPos) guard.Decision {
	return e.guard.BeforeInteract(e.cfg, e.tick, who, target)
}

func (e *Engine) BeforePlace(who model.Snapshot, cell, against geom.BlockPos) guard.Decision {
	return e.guard.BeforePlace(e.cfg, e.tick, who, cell, against)
}

func (e *Engine) BeforeEntity(who model.Snapshot, target model.Entity) guard.Decision {
	return e.guard.BeforeEntity(e.cfg, e.tick, who, target)
}

func (e *Engine) BeforeGameModeChange(who model.Snapshot, to model.GameMode) guard.Decision {
	return e.guard.BeforeGameModeChange(e.cfg, e.tick, who, to)
}
