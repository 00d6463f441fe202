package model

// Kind names a detector. The value doubles as its config key prefix.
type Kind string

const (
	KindSpeedRotation     Kind = "speed_rotation"
	KindSpeedIce          Kind = "speed_ice"
	KindSpeedTeleport     Kind = "speed_teleport"
	KindSprintSneak       Kind = "sprint_sneak"
	KindPhaseGeometric    Kind = "phase_geometric"
	KindPhaseMicro        Kind = "phase_micro"
	KindGlideSwim         Kind = "glide_swim"
	KindGlideZeroFall     Kind = "glide_zero_fall"
	KindFlyZeroFall       Kind = "fly_zero_fall"
	KindFlyGroundMismatch Kind = "fly_ground_mismatch"
	KindIllegalSwim       Kind = "illegal_swim"
	KindItemLegality      Kind = "item_legality"
	KindInventoryEnchant  Kind = "inventory_enchant"
	KindClickRate         Kind = "click_rate"

	// Interaction-time checks.
	KindReachInteract   Kind = "reach_interact"
	KindReachBreak      Kind = "reach_break"
	KindReachEntity     Kind = "reach_entity"
	KindAimAssist       Kind = "aim_assist"
	KindSpawnProtection Kind = "spawn_protection"
	KindThroughWall     Kind = "through_wall"
	KindGameModeChange  Kind = "gamemode_change"
	KindIllegalName     Kind = "illegal_name"
)

// TickKinds lists the per-tick detectors in evaluation order.
var TickKinds = []Kind{
	KindSpeedRotation,
	KindSpeedIce,
	KindSpeedTeleport,
	KindSprintSneak,
	KindPhaseGeometric,
	KindPhaseMicro,
	KindGlideSwim,
	KindGlideZeroFall,
	KindFlyZeroFall,
	KindFlyGroundMismatch,
	KindIllegalSwim,
	KindItemLegality,
	KindInventoryEnchant,
	KindClickRate,
}

// GuardKinds lists the checks run on interaction events.
var GuardKinds = []Kind{
	KindReachInteract,
	KindReachBreak,
	KindReachEntity,
	KindAimAssist,
	KindSpawnProtection,
	KindThroughWall,
	KindGameModeChange,
	KindIllegalName,
}

func AllKinds() []Kind {
	out := make([]Kind, 0, len(TickKinds)+len(GuardKinds))
	out = append(out, TickKinds...)
	return append(out, GuardKinds...)
}
