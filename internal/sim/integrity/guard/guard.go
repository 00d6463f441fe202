// Package guard vets interactions before they commit. Every enabled check
// runs and reports; the action is cancelled if any of them fails.
package guard

import (
	"log"
	"math"
	"strings"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/config"
	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
)

// entityHalfWidth pads the target box used for view-ray checks.
const entityHalfWidth = 0.4

type Guard struct {
	World  host.WorldProbe
	Sink   host.FlagSink
	Act    *correct.Actuator
	Logger *log.Logger
}

// Decision is the outcome for one interaction.
type Decision struct {
	Cancel bool
	Events []model.DetectionEvent
}

// Has reports whether k failed for this interaction.
func (d Decision) Has(k model.Kind) bool {
	for _, e := range d.Events {
		if e.Kind == k {
			return true
		}
	}
	return false
}

type check struct {
	g    *Guard
	cfg  *config.Snapshot
	tick uint64
	who  model.Snapshot
	d    Decision
}

func (g *Guard) begin(cfg *config.Snapshot, tick uint64, who model.Snapshot) *check {
	return &check{g: g, cfg: cfg, tick: tick, who: who}
}

func (c *check) on(k model.Kind) bool { return c.cfg.Enabled(k) }

// fail records k; cancel marks the action as refused.
func (c *check) fail(k model.Kind, ev model.Evidence, cancel bool) {
	e := model.DetectionEvent{ActorID: c.who.ActorID, Kind: k, Evidence: ev, Tick: c.tick}
	c.d.Events = append(c.d.Events, e)
	if cancel {
		c.d.Cancel = true
	}
	if c.cfg.Flags && c.g.Sink != nil {
		c.g.Sink.Report(e)
	}
}

func (c *check) finish(resync *geom.BlockPos) Decision {
	if !c.d.Cancel || c.g.Act == nil {
		return c.d
	}
	id := c.who.ActorID
	if err := c.g.Act.Apply(id, c.tick, correct.Cancel(), nil); err != nil {
		c.g.logf("actor=%s tick=%d cancel failed: %v", id, c.tick, err)
	}
	if resync != nil {
		b := *resync
		act := c.g.Act
		// The client may have already shown the change; restore it next tick.
		act.Sched.Schedule(id, c.tick+1, string(correct.KindResyncBlock), func() error {
			return act.Apply(id, c.tick+1, correct.ResyncBlock(b), nil)
		})
	}
	return c.d
}

// BeforeBreak vets a block break.
func (g *Guard) BeforeBreak(cfg *config.Snapshot, tick uint64, who model.Snapshot, target geom.BlockPos) Decision {
	c := g.begin(cfg, tick, who)
	g.blockChecks(c, target, target, model.KindReachBreak, true)
	return c.finish(&target)
}

// BeforeInteract vets using a block. Spawn protection only applies when
// something is in hand.
func (g *Guard) BeforeInteract(cfg *config.Snapshot, tick uint64, who model.Snapshot, target geom.BlockPos) Decision {
	c := g.begin(cfg, tick, who)
	_, holding := who.Held()
	g.blockChecks(c, target, target, model.KindReachInteract, holding)
	return c.finish(&target)
}

// BeforePlace vets filling cell by clicking the face of against. The view
// ray must land on against; spawn protection and reach apply to cell.
func (g *Guard) BeforePlace(cfg *config.Snapshot, tick uint64, who model.Snapshot, cell, against geom.BlockPos) Decision {
	c := g.begin(cfg, tick, who)
	_, holding := who.Held()
	g.blockChecks(c, cell, against, model.KindReachInteract, holding)
	return c.finish(&cell)
}

// blockChecks runs the block checks for target. sight is the block the view
// ray has to hit first.
func (g *Guard) blockChecks(c *check, target, sight geom.BlockPos, reachKind model.Kind, spawnApplies bool) {
	cfg := c.cfg
	eye := c.who.Eye(cfg.EyeHeight)
	exempt := cfg.Bypassed(c.who.Tags)

	if !exempt && spawnApplies && c.on(model.KindSpawnProtection) && cfg.InSpawn(target) {
		c.fail(model.KindSpawnProtection, model.Evidence{"block": target}, true)
	}

	if !exempt && c.on(model.KindThroughWall) {
		limit := cfg.ReachLimit(c.who.GameMode) + 1
		hit, ok := g.firstSolid(eye, c.who.ViewDirection(), limit)
		if !ok || hit.Block != sight {
			ev := model.Evidence{"target": sight, "hit": "none"}
			if ok {
				ev["hit"] = hit.Block
				ev["hit_type"] = hit.Info.TypeID
			}
			c.fail(model.KindThroughWall, ev, true)
		}
	}

	if c.on(reachKind) {
		dist := eye.Sub(target.Center()).Len()
		limit := cfg.ReachLimit(c.who.GameMode)
		if dist > limit {
			c.fail(reachKind, model.Evidence{"distance": dist, "limit": limit}, true)
		}
	}
}

// firstSolid casts the view ray. Passable blocks stop it, liquids do not.
func (g *Guard) firstSolid(eye, dir geom.Vec3, maxDist float64) (model.RayHit, bool) {
	if g.World == nil {
		return model.RayHit{}, false
	}
	hit, ok, err := g.World.Raycast(eye, dir, maxDist, model.RayFilter{IncludeLiquid: false, IncludePassable: true})
	if err != nil || !ok {
		return model.RayHit{}, false
	}
	return hit, true
}

// BeforeEntity vets an interaction with or attack on another entity. The
// aim check only reports.
func (g *Guard) BeforeEntity(cfg *config.Snapshot, tick uint64, who model.Snapshot, target model.Entity) Decision {
	c := g.begin(cfg, tick, who)

	if c.on(model.KindAimAssist) {
		if dot, dist, ok := AimDot(who, target); ok {
			minDot := cfg.Threshold(model.KindAimAssist, "min_dot")
			if dot < minDot &&
				dist > cfg.Threshold(model.KindAimAssist, "min_distance") &&
				who.Input != model.InputTouch &&
				!cfg.Exempt(target.TypeID) {
				c.fail(model.KindAimAssist, model.Evidence{"dot": dot, "threshold": minDot, "target": target.ID}, false)
			}
		}
	}

	eye := who.Eye(cfg.EyeHeight)
	dir := who.ViewDirection()
	lo, hi := entityBox(target)

	if c.on(model.KindThroughWall) && !cfg.Bypassed(who.Tags) {
		enter, onRay := rayBox(eye, dir, lo, hi)
		switch {
		case !onRay:
			c.fail(model.KindThroughWall, model.Evidence{"target": target.ID, "reason": "not in view"}, true)
		default:
			if hit, ok := g.firstSolid(eye, dir, enter); ok {
				c.fail(model.KindThroughWall, model.Evidence{
					"target": target.ID, "reason": "blocked", "hit": hit.Block, "hit_type": hit.Info.TypeID,
				}, true)
			}
		}
	}

	if c.on(model.KindReachEntity) {
		dist := eye.Sub(closestPoint(eye, lo, hi)).Len()
		limit := cfg.ReachLimit(who.GameMode)
		if dist > limit {
			c.fail(model.KindReachEntity, model.Evidence{"distance": dist, "limit": limit, "target": target.ID}, true)
		}
	}
	return c.finish(nil)
}

// AimDot is the cosine between the view direction and the feet-to-feet
// direction to target. ok is false when either vector is degenerate.
func AimDot(who model.Snapshot, target model.Entity) (dot, dist float64, ok bool) {
	to := target.Pos.Sub(who.Pos)
	dist = to.Len()
	d, err := geom.UnitDot(who.ViewDirection(), to)
	if err != nil {
		return 0, dist, false
	}
	return d, dist, true
}

// BeforeGameModeChange refuses switches by actors without a bypass tag.
func (g *Guard) BeforeGameModeChange(cfg *config.Snapshot, tick uint64, who model.Snapshot, to model.GameMode) Decision {
	c := g.begin(cfg, tick, who)
	if c.on(model.KindGameModeChange) && !hasAny(who.Tags, cfg.BypassTags) {
		c.fail(model.KindGameModeChange, model.Evidence{"from": who.GameMode, "to": to}, true)
	}
	return c.finish(nil)
}

// CheckName refuses display names carrying control whitespace.
func (g *Guard) CheckName(cfg *config.Snapshot, tick uint64, actorID, name string) Decision {
	c := g.begin(cfg, tick, model.Snapshot{ActorID: actorID})
	if c.on(model.KindIllegalName) && strings.ContainsAny(name, "\n\r\t") {
		c.fail(model.KindIllegalName, model.Evidence{"name": name}, true)
	}
	return c.d
}

func (g *Guard) logf(format string, args ...any) {
	if g.Logger != nil {
		g.Logger.Printf(format, args...)
	}
}

func hasAny(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func entityBox(e model.Entity) (lo, hi geom.Vec3) {
	h := e.Height
	if h <= 0 {
		h = 1.8
	}
	lo = geom.Vec3{e.Pos.X() - entityHalfWidth, e.Pos.Y(), e.Pos.Z() - entityHalfWidth}
	hi = geom.Vec3{e.Pos.X() + entityHalfWidth, e.Pos.Y() + h, e.Pos.Z() + entityHalfWidth}
	return lo, hi
}

// rayBox is the slab test. It returns the entry distance along the unit
// direction of dir.
func rayBox(origin, dir, lo, hi geom.Vec3) (float64, bool) {
	d, err := geom.Normalize(dir)
	if err != nil {
		return 0, false
	}
	tMin, tMax := 0.0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - origin[i]) / d[i]
		t2 := (hi[i] - origin[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

func closestPoint(p, lo, hi geom.Vec3) geom.Vec3 {
	return geom.Vec3{
		geom.Clamp(p[0], lo[0], hi[0]),
		geom.Clamp(p[1], lo[1], hi[1]),
		geom.Clamp(p[2], lo[2], hi[2]),
	}
}
