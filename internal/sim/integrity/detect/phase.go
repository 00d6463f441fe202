package detect

import (
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/model"
)

// Phase rays stop at solid geometry only.
var phaseFilter = model.RayFilter{IncludeLiquid: false, IncludePassable: false}

func phaseApplies(in *Input, minDist float64) (geom.Vec3, float64, bool) {
	if in.Snap.GameMode == model.GameModeSpectator {
		return geom.Vec3{}, 0, false
	}
	disp := in.Displacement()
	dist := disp.Len()
	if !(dist > minDist) {
		return geom.Vec3{}, 0, false
	}
	dir, err := geom.Normalize(disp)
	if err != nil {
		return geom.Vec3{}, 0, false
	}
	return dir, dist, true
}

// castSolid reports the first non-air hit. Probe errors count as no hit.
func castSolid(in *Input, origin, dir geom.Vec3, maxDist float64) (model.RayHit, bool) {
	if in.World == nil {
		return model.RayHit{}, false
	}
	hit, ok, err := in.World.Raycast(origin, dir, maxDist, phaseFilter)
	if err != nil || !ok || hit.Info.Air {
		return model.RayHit{}, false
	}
	return hit, true
}

func hitEvidence(h model.RayHit, ok bool) any {
	if !ok {
		return "none"
	}
	return map[string]any{"type": h.Info.TypeID, "x": h.Block.X, "y": h.Block.Y, "z": h.Block.Z}
}

// PhaseGeometric traces the feet and head paths since the previous tick.
// When either crosses a solid block the actor goes back to the last safe
// location and gets pushed against its movement for a few more ticks.
func PhaseGeometric(in *Input) Result {
	k := model.KindPhaseGeometric
	dir, dist, ok := phaseApplies(in, in.th(k, "min_distance"))
	if !ok {
		return none
	}
	feet, feetHit := castSolid(in, in.PrevFeet, dir, dist)
	head, headHit := castSolid(in, in.PrevHead, dir, dist)
	if !feetHit && !headHit {
		in.Rec.LastSafe = in.Snap.Pos
		in.Rec.HasLastSafe = true
		return none
	}

	disp := in.Displacement()
	c := correct.Reposition(in.Rec.Safe(in.PrevFeet))
	c.Impulse = disp.Mul(-in.th(k, "knockback_scale"))
	c.ReapplyTicks = int(in.th(k, "reapply_ticks"))
	in.Rec.PendingKnockbackTicks = c.ReapplyTicks
	return fire(model.Evidence{
		"feet":     hitEvidence(feet, feetHit),
		"head":     hitEvidence(head, headHit),
		"distance": dist,
	}, c)
}

// PhaseMicro probes a hair's width ahead of the current and previous feet.
func PhaseMicro(in *Input) Result {
	k := model.KindPhaseMicro
	dir, _, ok := phaseApplies(in, in.th(k, "min_distance"))
	if !ok {
		return none
	}
	l := in.th(k, "ray_length")
	cur, curHit := castSolid(in, in.Snap.Pos, dir, l)
	prev, prevHit := castSolid(in, in.PrevFeet, dir, l)
	if !curHit && !prevHit {
		return none
	}
	return fire(model.Evidence{
		"current":  hitEvidence(cur, curHit),
		"previous": hitEvidence(prev, prevHit),
	}, nil)
}
