package tuning

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      20,
		SampleWindowMs:  1000,
		EyeHeight:       1.62,
		WorldBoundaryR:  512,
		SurfaceY:        63,
		Flags:           true,
		Detectors: map[string]Detector{
			"speed_rotation": {Enabled: true, Thresholds: map[string]float64{
				"yaw_delta":     179,
				"pitch_delta":   1.9,
				"accel_epsilon": 1e-7,
			}},
			"speed_ice": {Enabled: true, Thresholds: map[string]float64{
				"max_speed": 5.7,
			}},
			"speed_teleport": {Enabled: true, Thresholds: map[string]float64{
				"max_accel":     0,
				"min_distance":  4,
				"impulse_scale": 1,
			}},
			"sprint_sneak": {Enabled: true},
			"phase_geometric": {Enabled: true, Thresholds: map[string]float64{
				"min_distance":    0.001,
				"knockback_scale": 2,
				"reapply_ticks":   2,
			}},
			"phase_micro": {Enabled: true, Thresholds: map[string]float64{
				"ray_length":   0.01,
				"min_distance": 0.001,
			}},
			"glide_swim":      {Enabled: true},
			"glide_zero_fall": {Enabled: true},
			"fly_zero_fall":   {Enabled: false},
			"fly_ground_mismatch": {Enabled: false, Thresholds: map[string]float64{
				"grid":    1.0 / 64,
				"epsilon": 1e-4,
			}},
			"illegal_swim":      {Enabled: true},
			"item_legality":     {Enabled: false},
			"inventory_enchant": {Enabled: false},
			"click_rate": {Enabled: false, Thresholds: map[string]float64{
				"max":         20,
				"decay_ticks": 20,
			}},
			"reach_interact": {Enabled: true},
			"reach_break":    {Enabled: true},
			"reach_entity":   {Enabled: true},
			"aim_assist": {Enabled: true, Thresholds: map[string]float64{
				"min_dot":      0.38,
				"min_distance": 1,
			}},
			"spawn_protection": {Enabled: true},
			"through_wall":     {Enabled: true},
			"gamemode_change":  {Enabled: true},
			"illegal_name":     {Enabled: true},
		},
		Reach: Reach{
			Survival:  5,
			Creative:  7,
			Adventure: 5,
			Spectator: 5,
			Scalar:    1.5,
		},
		Spawn: SpawnVolume{
			Min: [3]int{-32, -64, -32},
			Max: [3]int{32, 320, 32},
		},
		BypassTags:         []string{"op"},
		OverrideTags:       []string{"dev"},
		BannedItemPrefixes: []string{"tile."},
		IceBlocks:          []string{"ICE", "PACKED_ICE", "BLUE_ICE", "FROSTED_ICE"},
		ExemptTargets:      []string{"enderman", "item", "arrow"},
	}
}
