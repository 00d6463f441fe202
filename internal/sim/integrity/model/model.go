package model

import (
	"voxelguard.ai/internal/sim/geom"
)

type GameMode string

const (
	GameModeSurvival  GameMode = "survival"
	GameModeCreative  GameMode = "creative"
	GameModeAdventure GameMode = "adventure"
	GameModeSpectator GameMode = "spectator"
)

func (m GameMode) Valid() bool {
	switch m {
	case GameModeSurvival, GameModeCreative, GameModeAdventure, GameModeSpectator:
		return true
	}
	return false
}

type InputMode string

const (
	InputKeyboardMouse InputMode = "keyboard_mouse"
	InputTouch         InputMode = "touch"
	InputGamepad       InputMode = "gamepad"
)

type Rotation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Status carries the movement flags reported by the client for this tick.
type Status struct {
	Sprinting   bool `json:"sprinting,omitempty"`
	Sneaking    bool `json:"sneaking,omitempty"`
	Jumping     bool `json:"jumping,omitempty"`
	Gliding     bool `json:"gliding,omitempty"`
	Swimming    bool `json:"swimming,omitempty"`
	InWater     bool `json:"in_water,omitempty"`
	OnGround    bool `json:"on_ground,omitempty"`
	Flying      bool `json:"flying,omitempty"`
	SpeedEffect bool `json:"speed_effect,omitempty"`
}

type Enchantment struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

type ItemStack struct {
	ID           string        `json:"id"`
	Amount       int           `json:"amount"`
	MaxAmount    int           `json:"max_amount"`
	Enchantments []Enchantment `json:"enchantments,omitempty"`
}

func (s ItemStack) Empty() bool { return s.ID == "" || s.Amount <= 0 }

// Snapshot is one actor's captured state for one tick. Treat it as a value:
// corrections derive a new Snapshot through the With* helpers.
type Snapshot struct {
	ActorID  string    `json:"actor_id"`
	Tick     uint64    `json:"tick"`
	TimeMs   int64     `json:"time_ms"`
	Pos      geom.Vec3 `json:"pos"`
	Vel      geom.Vec3 `json:"vel"`
	Rot      Rotation  `json:"rot"`
	GameMode GameMode  `json:"gamemode"`
	Status   Status    `json:"status"`
	Input    InputMode `json:"input_mode,omitempty"`
	Tags     []string  `json:"tags,omitempty"`

	SelectedSlot int         `json:"selected_slot"`
	Inventory    []ItemStack `json:"inventory,omitempty"`

	// ClientTimeMs is the clock the client claimed. TimeMs is server time
	// and is the one the sample window runs on.
	ClientTimeMs int64 `json:"client_time_ms,omitempty"`
}

func (s Snapshot) WithPos(p geom.Vec3) Snapshot {
	s.Pos = p
	return s
}

func (s Snapshot) WithRot(r Rotation) Snapshot {
	s.Rot = r
	return s
}

// WithoutSlot returns a copy whose inventory no longer holds anything at slot.
func (s Snapshot) WithoutSlot(slot int) Snapshot {
	if slot < 0 || slot >= len(s.Inventory) {
		return s
	}
	inv := make([]ItemStack, len(s.Inventory))
	copy(inv, s.Inventory)
	inv[slot] = ItemStack{}
	s.Inventory = inv
	return s
}

// WithoutEnchantment returns a copy with ench removed from the item at slot.
func (s Snapshot) WithoutEnchantment(slot int, ench string) Snapshot {
	if slot < 0 || slot >= len(s.Inventory) {
		return s
	}
	inv := make([]ItemStack, len(s.Inventory))
	copy(inv, s.Inventory)
	it := inv[slot]
	kept := make([]Enchantment, 0, len(it.Enchantments))
	for _, e := range it.Enchantments {
		if e.ID != ench {
			kept = append(kept, e)
		}
	}
	it.Enchantments = kept
	inv[slot] = it
	s.Inventory = inv
	return s
}

func (s Snapshot) Held() (ItemStack, bool) {
	if s.SelectedSlot < 0 || s.SelectedSlot >= len(s.Inventory) {
		return ItemStack{}, false
	}
	it := s.Inventory[s.SelectedSlot]
	if it.Empty() {
		return ItemStack{}, false
	}
	return it, true
}

func (s Snapshot) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Eye is the head location for the given eye height.
func (s Snapshot) Eye(eyeHeight float64) geom.Vec3 {
	return s.Pos.Add(geom.Vec3{0, eyeHeight, 0})
}

func (s Snapshot) ViewDirection() geom.Vec3 {
	return geom.ViewDirection(s.Rot.Yaw, s.Rot.Pitch)
}

// Evidence is the structured payload attached to a detection.
type Evidence map[string]any

type DetectionEvent struct {
	ActorID  string   `json:"actor_id"`
	Kind     Kind     `json:"kind"`
	Evidence Evidence `json:"evidence,omitempty"`
	Tick     uint64   `json:"tick"`
}

// BlockInfo is what a probe learned about a block. Known is false when the
// probe failed; unknown blocks are treated as non-solid.
type BlockInfo struct {
	TypeID   string `json:"type_id"`
	Air      bool   `json:"air"`
	Liquid   bool   `json:"liquid"`
	Passable bool   `json:"passable"`
	Known    bool   `json:"known"`
}

func (b BlockInfo) Solid() bool {
	return b.Known && !b.Air && !b.Liquid
}

type RayFilter struct {
	IncludeLiquid   bool
	IncludePassable bool
	ExcludeTypes    []string
}

type RayHit struct {
	Block    geom.BlockPos `json:"block"`
	Info     BlockInfo     `json:"info"`
	Distance float64       `json:"distance"`
}

type Entity struct {
	ID     string    `json:"id"`
	TypeID string    `json:"type_id"`
	Pos    geom.Vec3 `json:"pos"`
	Height float64   `json:"height"`
}

type EntityFilter struct {
	ExcludeIDs   []string
	ExcludeTypes []string
}
