// Package integritytest provides in-memory collaborators for exercising the
// integrity core without a running world.
package integritytest

import (
	"math"
	"sort"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
)

var (
	Air   = model.BlockInfo{TypeID: "AIR", Air: true, Known: true}
	Stone = model.BlockInfo{TypeID: "STONE", Known: true}
	Ice   = model.BlockInfo{TypeID: "ICE", Known: true}
	Water = model.BlockInfo{TypeID: "WATER", Liquid: true, Known: true}
	Grass = model.BlockInfo{TypeID: "TALL_GRASS", Passable: true, Known: true}
)

// World is a sparse block map: everything not set is air, everything at
// y < Floor is stone. Unloaded positions fail with ErrProbeUnavailable.
type World struct {
	Blocks   map[geom.BlockPos]model.BlockInfo
	Floor    int
	Unloaded map[geom.BlockPos]bool
	Entities []model.Entity
}

func NewWorld() *World {
	return &World{Blocks: map[geom.BlockPos]model.BlockInfo{}, Floor: 64, Unloaded: map[geom.BlockPos]bool{}}
}

func (w *World) Set(p geom.BlockPos, b model.BlockInfo) { w.Blocks[p] = b }

func (w *World) Block(p geom.BlockPos) (model.BlockInfo, error) {
	if w.Unloaded[p] {
		return model.BlockInfo{}, host.ErrProbeUnavailable
	}
	if b, ok := w.Blocks[p]; ok {
		return b, nil
	}
	if p.Y < w.Floor {
		return Stone, nil
	}
	return Air, nil
}

func (w *World) Raycast(origin, dir geom.Vec3, maxDist float64, f model.RayFilter) (model.RayHit, bool, error) {
	var (
		hit   model.RayHit
		found bool
	)
	err := geom.Traverse(origin, dir, maxDist, func(b geom.BlockPos, t float64) bool {
		info, err := w.Block(b)
		if err != nil {
			return true
		}
		if info.Air || (info.Liquid && !f.IncludeLiquid) || (info.Passable && !f.IncludePassable) {
			return true
		}
		for _, ex := range f.ExcludeTypes {
			if ex == info.TypeID {
				return true
			}
		}
		hit = model.RayHit{Block: b, Info: info, Distance: t}
		found = true
		return false
	})
	if err != nil {
		return model.RayHit{}, false, err
	}
	return hit, found, nil
}

func (w *World) EntitiesNear(origin geom.Vec3, radius float64, f model.EntityFilter) ([]model.Entity, error) {
	var out []model.Entity
	for _, e := range w.Entities {
		if contains(f.ExcludeIDs, e.ID) || contains(f.ExcludeTypes, e.TypeID) {
			continue
		}
		if e.Pos.Sub(origin).Len() <= radius {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Config is a map-backed ConfigProvider.
type Config struct {
	Bools   map[string]bool
	Numbers map[string]float64
	Lists   map[string][]string
}

// NewConfig enables the given kinds and nothing else.
func NewConfig(kinds ...model.Kind) *Config {
	c := &Config{Bools: map[string]bool{"flags": true}, Numbers: map[string]float64{}, Lists: map[string][]string{}}
	for _, k := range kinds {
		c.Bools[string(k)+".enabled"] = true
	}
	return c
}

func (c *Config) Bool(k string) (bool, bool) {
	v, ok := c.Bools[k]
	return v, ok
}

func (c *Config) Number(k string) (float64, bool) {
	v, ok := c.Numbers[k]
	return v, ok
}

func (c *Config) Strings(k string) ([]string, bool) {
	v, ok := c.Lists[k]
	return v, ok
}

// Sink records reported events.
type Sink struct {
	Events []model.DetectionEvent
}

func (s *Sink) Report(ev model.DetectionEvent) { s.Events = append(s.Events, ev) }

func (s *Sink) Kinds() []model.Kind {
	out := make([]model.Kind, 0, len(s.Events))
	for _, e := range s.Events {
		out = append(out, e.Kind)
	}
	return out
}

func (s *Sink) Has(k model.Kind) bool {
	for _, e := range s.Events {
		if e.Kind == k {
			return true
		}
	}
	return false
}

func (s *Sink) First(k model.Kind) (model.DetectionEvent, bool) {
	for _, e := range s.Events {
		if e.Kind == k {
			return e, true
		}
	}
	return model.DetectionEvent{}, false
}

// Call is one actuator invocation.
type Call struct {
	Op      string
	ActorID string
	Pos     geom.Vec3
	H       geom.Vec2
	V       float64
	Slot    int
	Ench    string
	Rot     model.Rotation
	Block   geom.BlockPos
}

// Actuator records calls. Actors listed in Gone fail with ErrActorGone.
type Actuator struct {
	Calls []Call
	Gone  map[string]bool
}

func NewActuator() *Actuator { return &Actuator{Gone: map[string]bool{}} }

func (a *Actuator) rec(c Call) error {
	a.Calls = append(a.Calls, c)
	if a.Gone[c.ActorID] {
		return host.ErrActorGone
	}
	return nil
}

func (a *Actuator) Teleport(id string, p geom.Vec3, _ host.TeleportOptions) error {
	return a.rec(Call{Op: "teleport", ActorID: id, Pos: p})
}

func (a *Actuator) ApplyImpulse(id string, h geom.Vec2, v float64) error {
	return a.rec(Call{Op: "impulse", ActorID: id, H: h, V: v})
}

func (a *Actuator) CancelPendingAction(id string) error {
	return a.rec(Call{Op: "cancel", ActorID: id})
}

func (a *Actuator) RemoveItemAt(id string, slot int) error {
	return a.rec(Call{Op: "remove_item", ActorID: id, Slot: slot})
}

func (a *Actuator) StripEnchantment(id string, slot int, ench string) error {
	return a.rec(Call{Op: "strip_enchantment", ActorID: id, Slot: slot, Ench: ench})
}

func (a *Actuator) SetRotation(id string, r model.Rotation) error {
	return a.rec(Call{Op: "set_rotation", ActorID: id, Rot: r})
}

func (a *Actuator) ResyncBlock(id string, b geom.BlockPos) error {
	return a.rec(Call{Op: "resync_block", ActorID: id, Block: b})
}

// Ops lists the operation names in call order.
func (a *Actuator) Ops() []string {
	out := make([]string, 0, len(a.Calls))
	for _, c := range a.Calls {
		out = append(out, c.Op)
	}
	return out
}

func (a *Actuator) Count(op string) int {
	n := 0
	for _, c := range a.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (a *Actuator) Last(op string) (Call, bool) {
	for i := len(a.Calls) - 1; i >= 0; i-- {
		if a.Calls[i].Op == op {
			return a.Calls[i], true
		}
	}
	return Call{}, false
}

// Near compares vectors within eps.
func Near(a, b geom.Vec3, eps float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
