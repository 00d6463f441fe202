package world

import (
	"sort"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
)

// probe is the integrity engine's read-only view of the world.
type probe struct{ w *World }

func (p probe) Block(pos geom.BlockPos) (model.BlockInfo, error) {
	return p.w.chunks.Block(pos)
}

func (p probe) Raycast(origin, dir geom.Vec3, maxDist float64, f model.RayFilter) (model.RayHit, bool, error) {
	return p.w.chunks.Raycast(origin, dir, maxDist, f)
}

// EntitiesNear lists NPCs and actors within radius, sorted by id.
func (p probe) EntitiesNear(origin geom.Vec3, radius float64, f model.EntityFilter) ([]model.Entity, error) {
	var out []model.Entity
	add := func(e model.Entity) {
		if contains(f.ExcludeIDs, e.ID) || contains(f.ExcludeTypes, e.TypeID) {
			return
		}
		if geom.Distance(e.Pos, origin) <= radius {
			out = append(out, e)
		}
	}
	for _, n := range p.w.npcs {
		add(model.Entity{ID: n.ID, TypeID: n.TypeID, Pos: n.Pos, Height: n.Height})
	}
	for _, a := range p.w.actors {
		add(model.Entity{ID: a.ID, TypeID: "player", Pos: a.Pos, Height: actorHeight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// entity resolves an interaction target by id.
func (w *World) entity(id string) (model.Entity, bool) {
	if n, ok := w.npcs[id]; ok {
		return model.Entity{ID: n.ID, TypeID: n.TypeID, Pos: n.Pos, Height: n.Height}, true
	}
	if a, ok := w.actors[id]; ok {
		return model.Entity{ID: a.ID, TypeID: "player", Pos: a.Pos, Height: actorHeight}, true
	}
	return model.Entity{}, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
