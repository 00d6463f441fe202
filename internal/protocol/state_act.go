package protocol

// STATE (client -> server): the client's view of its own body for one tick.
// The server never trusts it; the integrity engine checks it.
type StateMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	TimeMs          int64       `json:"time_ms"`
	Pos             [3]float64  `json:"pos"`
	Vel             [3]float64  `json:"vel"`
	Rot             Rotation    `json:"rot"`
	Status          Status      `json:"status"`
	SelectedSlot    int         `json:"selected_slot"`
	Inventory       []ItemStack `json:"inventory,omitempty"`
}

type Rotation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

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

type ItemStack struct {
	Item         string        `json:"item"`
	Count        int           `json:"count"`
	Enchantments []Enchantment `json:"enchantments,omitempty"`
}

type Enchantment struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// Action types carried by ACT.
const (
	ActBreak          = "BREAK"
	ActPlace          = "PLACE"
	ActInteractBlock  = "INTERACT_BLOCK"
	ActInteractEntity = "INTERACT_ENTITY"
	ActAttack         = "ATTACK"
	ActUseItem        = "USE_ITEM"
	ActGameMode       = "GAMEMODE"
)

// ACT (client -> server)
type ActMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	ActorID         string      `json:"actor_id,omitempty"`
	Actions         []ActionReq `json:"actions"`
}

type ActionReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	BlockPos [3]int  `json:"block_pos,omitempty"`
	BlockID  string  `json:"block_id,omitempty"` // PLACE
	Against  *[3]int `json:"against,omitempty"`  // PLACE: the clicked block, sharing a face with block_pos
	TargetID string  `json:"target_id,omitempty"`
	GameMode string  `json:"gamemode,omitempty"`
}
