package voxel

import (
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/model"
)

// Info describes a palette id in the terms the integrity core uses.
func (s *Store) Info(b uint16) model.BlockInfo {
	id := s.BlockName(b)
	def, ok := s.cats.Blocks.Defs[id]
	if !ok {
		return model.BlockInfo{TypeID: id}
	}
	return model.BlockInfo{
		TypeID:   id,
		Air:      b == s.gen.Air,
		Liquid:   def.Liquid,
		Passable: def.Passable,
		Known:    true,
	}
}

func (s *Store) Block(pos geom.BlockPos) (model.BlockInfo, error) {
	b, err := s.GetBlock(pos)
	if err != nil {
		return model.BlockInfo{}, err
	}
	return s.Info(b), nil
}

// Raycast walks the grid from origin and stops at the first block the filter
// accepts. Unloaded cells are stepped over.
func (s *Store) Raycast(origin, dir geom.Vec3, maxDist float64, f model.RayFilter) (model.RayHit, bool, error) {
	var (
		hit   model.RayHit
		found bool
	)
	err := geom.Traverse(origin, dir, maxDist, func(p geom.BlockPos, t float64) bool {
		info, err := s.Block(p)
		if err != nil || !accepts(info, f) {
			return true
		}
		hit = model.RayHit{Block: p, Info: info, Distance: t}
		found = true
		return false
	})
	if err != nil {
		return model.RayHit{}, false, err
	}
	return hit, found, nil
}

func accepts(info model.BlockInfo, f model.RayFilter) bool {
	if !info.Known || info.Air {
		return false
	}
	if info.Liquid && !f.IncludeLiquid {
		return false
	}
	if info.Passable && !f.IncludePassable {
		return false
	}
	for _, ex := range f.ExcludeTypes {
		if ex == info.TypeID {
			return false
		}
	}
	return true
}
