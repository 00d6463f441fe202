package world

import (
	"fmt"

	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/sim/catalogs"
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
)

const (
	inventorySize = 36
	actorHeight   = 1.8
)

// Actor is the server's record of one connected player. Movement fields
// hold the last accepted client claim, overwritten by corrections.
type Actor struct {
	ID        string
	Name      string
	SessionID string

	Pos      geom.Vec3
	Vel      geom.Vec3
	Rot      model.Rotation
	GameMode model.GameMode
	Status   model.Status
	Input    model.InputMode
	Tags     []string

	TimeMs       int64
	ClientTimeMs int64
	SelectedSlot int
	Inventory    []model.ItemStack
}

func newActor(id, name string, spawn geom.Vec3) *Actor {
	return &Actor{
		ID:        id,
		Name:      name,
		Pos:       spawn,
		GameMode:  model.GameModeSurvival,
		Input:     model.InputKeyboardMouse,
		Inventory: make([]model.ItemStack, inventorySize),
		Status:    model.Status{OnGround: true},
	}
}

func (a *Actor) applyState(st protocol.StateMsg, cats *catalogs.Catalogs) {
	a.ClientTimeMs = st.TimeMs
	a.Pos = vec(st.Pos)
	a.Vel = vec(st.Vel)
	a.Rot = model.Rotation{Yaw: st.Rot.Yaw, Pitch: st.Rot.Pitch}
	a.Status = model.Status(st.Status)
	if st.SelectedSlot >= 0 && st.SelectedSlot < inventorySize {
		a.SelectedSlot = st.SelectedSlot
	}
	if st.Inventory != nil {
		a.Inventory = make([]model.ItemStack, inventorySize)
		for i, s := range st.Inventory {
			if i >= inventorySize {
				break
			}
			a.Inventory[i] = toModelStack(s, cats)
		}
	}
}

// Snapshot captures the actor for the integrity engine.
func (a *Actor) Snapshot(tick uint64) model.Snapshot {
	inv := make([]model.ItemStack, len(a.Inventory))
	copy(inv, a.Inventory)
	return model.Snapshot{
		ActorID:      a.ID,
		Tick:         tick,
		TimeMs:       a.TimeMs,
		Pos:          a.Pos,
		Vel:          a.Vel,
		Rot:          a.Rot,
		GameMode:     a.GameMode,
		Status:       a.Status,
		Input:        a.Input,
		Tags:         append([]string(nil), a.Tags...),
		SelectedSlot: a.SelectedSlot,
		Inventory:    inv,
		ClientTimeMs: a.ClientTimeMs,
	}
}

// adopt takes the engine's corrected snapshot as the new truth.
func (a *Actor) adopt(s model.Snapshot) {
	a.Pos = s.Pos
	a.Rot = s.Rot
	a.Inventory = s.Inventory
}

func (a *Actor) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func toModelStack(s protocol.ItemStack, cats *catalogs.Catalogs) model.ItemStack {
	out := model.ItemStack{ID: s.Item, Amount: s.Count}
	if n, ok := cats.MaxStack(s.Item); ok {
		out.MaxAmount = n
	}
	for _, e := range s.Enchantments {
		out.Enchantments = append(out.Enchantments, model.Enchantment{ID: e.ID, Level: e.Level})
	}
	return out
}

// NPC is a server-driven entity. NPCs never move in this world; they exist
// as targets for entity interactions.
type NPC struct {
	ID     string
	TypeID string
	Pos    geom.Vec3
	Height float64
}

type NPCSpec struct {
	TypeID string     `yaml:"type"`
	Pos    [3]float64 `yaml:"pos"`
	Height float64    `yaml:"height"`
}

// DefaultNPCs places a hostile, a passive and an exempt target around spawn.
func DefaultNPCs(surfaceY int) []NPCSpec {
	y := float64(surfaceY + 1)
	return []NPCSpec{
		{TypeID: "zombie", Pos: [3]float64{6.5, y, 0.5}, Height: 1.95},
		{TypeID: "villager", Pos: [3]float64{-6.5, y, 0.5}, Height: 1.95},
		{TypeID: "enderman", Pos: [3]float64{0.5, y, 8.5}, Height: 2.9},
	}
}

func (w *World) spawnNPC(spec NPCSpec) *NPC {
	n := &NPC{
		ID:     fmt.Sprintf("N%d", len(w.npcs)+1),
		TypeID: spec.TypeID,
		Pos:    vec(spec.Pos),
		Height: spec.Height,
	}
	w.npcs[n.ID] = n
	return n
}

func vec(v [3]float64) geom.Vec3 { return geom.Vec3(v) }
