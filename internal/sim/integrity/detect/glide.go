package detect

import (
	"math"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/model"
)

func GlideSwim(in *Input) Result {
	st := in.Snap.Status
	if !st.Gliding || !st.Swimming || st.Sprinting {
		return none
	}
	back := in.Snap.Pos.Sub(in.Snap.Vel)
	if !geom.Finite(back) {
		return none
	}
	return fire(model.Evidence{"speed": in.Snap.Vel.Len() * in.Cfg.TickRate}, correct.Reposition(back))
}

func GlideZeroFall(in *Input) Result {
	if !in.Snap.Status.Gliding || in.Snap.Vel.Y() != 0 || !in.State.IsMoving {
		return none
	}
	return fire(model.Evidence{"distance": in.Displacement().Len()}, nil)
}

func FlyZeroFall(in *Input) Result {
	if !in.Snap.Status.Gliding || in.Snap.Vel.Y() != 0 || in.Snap.Status.OnGround {
		return none
	}
	return fire(model.Evidence{"vy": in.Snap.Vel.Y()}, nil)
}

// OnGrid reports whether y is a multiple of grid within eps.
func OnGrid(y, grid, eps float64) bool {
	if grid <= 0 {
		return false
	}
	r := math.Mod(y, grid)
	if r < 0 {
		r += grid
	}
	return r < eps || grid-r < eps
}

// FlyGroundMismatch compares the client's on-ground claim with whether the
// feet sit on the 1/64 collision grid.
func FlyGroundMismatch(in *Input) Result {
	k := model.KindFlyGroundMismatch
	y := in.Snap.Pos.Y()
	server := OnGrid(y, in.th(k, "grid"), in.th(k, "epsilon"))
	client := in.Snap.Status.OnGround
	if client == server {
		return none
	}
	return fire(model.Evidence{
		"y":             y,
		"client_ground": client,
		"server_ground": server,
		"vy":            in.Snap.Vel.Y(),
	}, nil)
}

// IllegalSwim flags a swimming pose outside water. The same pose is how an
// actor crawls, which is legal when the space above is squeezed.
func IllegalSwim(in *Input) Result {
	st := in.Snap.Status
	if !st.Swimming || st.InWater || in.State.IsInWater || in.State.IsCrawling {
		return none
	}
	return fire(model.Evidence{
		"y":            in.Snap.Pos.Y(),
		"foot":         in.State.FootType,
		"head_blocked": in.State.HeadBlocked,
	}, nil)
}
