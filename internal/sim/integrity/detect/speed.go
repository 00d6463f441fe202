package detect

import (
	"math"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/integrity/samples"
)

// PitchDelta is the absolute pitch change since the previous tick.
func PitchDelta(prev, cur model.Rotation) float64 {
	return math.Abs(cur.Pitch - prev.Pitch)
}

// SpeedRotation catches a half-turn snap with a steady pitch sweep while
// moving: the signature of rotation-driven speed hacks.
func SpeedRotation(in *Input) Result {
	k := model.KindSpeedRotation
	if !in.State.IsMoving {
		return none
	}
	cur := in.Snap.Rot
	yaw := math.Abs(geom.AngleDelta(in.PrevRot.Yaw, cur.Yaw))
	pitch := PitchDelta(in.PrevRot, cur)
	accel := math.Abs(pitch - in.Rec.PrevPitchDelta)
	if math.IsNaN(yaw) || math.IsNaN(pitch) {
		return none
	}
	if yaw > in.th(k, "yaw_delta") && pitch > in.th(k, "pitch_delta") && accel*100 < in.th(k, "accel_epsilon") {
		return fire(model.Evidence{
			"yaw_delta":   yaw,
			"pitch_delta": pitch,
			"accel":       accel,
		}, correct.RevertRotation(in.PrevRot))
	}
	return none
}

// SpeedIce flags sprinting on ice faster than the vanilla cap.
func SpeedIce(in *Input) Result {
	st := in.Snap.Status
	if !st.Sprinting || !st.OnGround || st.Jumping || st.SpeedEffect {
		return none
	}
	speed := geom.HorizontalLen(in.Snap.Vel) * in.Cfg.TickRate
	if speed <= in.th(model.KindSpeedIce, "max_speed") {
		return none
	}
	if !in.Cfg.IsIce(in.State.FootType) {
		return none
	}
	return fire(model.Evidence{"speed": speed, "block": in.State.FootType}, nil)
}

// SpeedTeleport flags a large displacement over the newest sample pair that
// came with no measurable change in velocity.
func SpeedTeleport(in *Input) Result {
	k := model.KindSpeedTeleport
	step, err := samples.Last(in.Window)
	if err != nil {
		// ErrNoData or a degenerate pair: skipped this tick.
		return none
	}
	if step.Accel > in.th(k, "max_accel") || step.Distance <= in.th(k, "min_distance") {
		return none
	}
	implied := step.Disp.Mul(1 / step.DtSec)
	ev := model.Evidence{
		"accel":            step.Accel,
		"distance":         step.Distance,
		"implied_velocity": implied.Len(),
		"client_time_ms":   in.Snap.ClientTimeMs,
	}
	if in.AnalysisErr == nil {
		ev["window_avg_speed"] = in.Analysis.AvgSpeed
		ev["window_peak_acc"] = in.Analysis.PeakAcc
	}
	return fire(ev, correct.Oppose(step.Disp, in.th(k, "impulse_scale")))
}

// SprintSneak flags sprinting and sneaking at once while moving and steps
// the actor back one tick of velocity.
func SprintSneak(in *Input) Result {
	st := in.Snap.Status
	if !st.Sprinting || !st.Sneaking || !in.State.IsMoving {
		return none
	}
	speed := in.Snap.Vel.Len() * in.Cfg.TickRate
	back := in.Snap.Pos.Sub(in.Snap.Vel)
	if !geom.Finite(back) {
		return none
	}
	return fire(model.Evidence{"speed": speed}, correct.Reposition(back))
}
