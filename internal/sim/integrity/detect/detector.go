// Package detect holds the per-tick detectors and the pipeline that runs them.
package detect

import (
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/config"
	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/integrity/samples"
	"voxelguard.ai/internal/sim/integrity/scratch"
	"voxelguard.ai/internal/sim/integrity/state"
)

// ItemRules answers item and enchantment legality questions.
type ItemRules interface {
	MaxStack(itemID string) (int, bool)
	// EnchantmentAllowed returns maxLevel 0 for enchantments it does not know.
	EnchantmentAllowed(itemID, ench string) (maxLevel int, legal bool)
}

// Input is everything one detector may read for one actor on one tick. Snap
// and State reflect corrections applied earlier in the same tick.
type Input struct {
	Tick uint64
	Snap model.Snapshot
	// Client is the snapshot as reported, before any correction.
	Client model.Snapshot
	State  state.MotionState

	Window      []samples.Sample
	Analysis    samples.Analysis
	AnalysisErr error

	Rec      *scratch.Record
	PrevFeet geom.Vec3
	PrevHead geom.Vec3
	PrevRot  model.Rotation

	Cfg   *config.Snapshot
	World host.WorldProbe
	Items ItemRules
}

// Displacement is the feet movement since the previous tick.
func (in *Input) Displacement() geom.Vec3 {
	return in.Snap.Pos.Sub(in.PrevFeet)
}

func (in *Input) th(k model.Kind, name string) float64 {
	return in.Cfg.Threshold(k, name)
}

type Result struct {
	Fired      bool
	Evidence   model.Evidence
	Correction *correct.Correction
}

func fire(ev model.Evidence, c *correct.Correction) Result {
	return Result{Fired: true, Evidence: ev, Correction: c}
}

var none Result

type Detector struct {
	Kind model.Kind
	Eval func(in *Input) Result
}

// Table is the evaluation order. Later detectors see earlier corrections.
var Table = []Detector{
	{model.KindSpeedRotation, SpeedRotation},
	{model.KindSpeedIce, SpeedIce},
	{model.KindSpeedTeleport, SpeedTeleport},
	{model.KindSprintSneak, SprintSneak},
	{model.KindPhaseGeometric, PhaseGeometric},
	{model.KindPhaseMicro, PhaseMicro},
	{model.KindGlideSwim, GlideSwim},
	{model.KindGlideZeroFall, GlideZeroFall},
	{model.KindFlyZeroFall, FlyZeroFall},
	{model.KindFlyGroundMismatch, FlyGroundMismatch},
	{model.KindIllegalSwim, IllegalSwim},
	{model.KindItemLegality, ItemLegality},
	{model.KindInventoryEnchant, InventoryEnchant},
	{model.KindClickRate, ClickRate},
}
