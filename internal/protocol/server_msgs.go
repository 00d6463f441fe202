package protocol

// OBS (server -> client): authoritative view after the tick's corrections.
type ObsMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	ActorID         string      `json:"actor_id"`
	Self            SelfObs     `json:"self"`
	Entities        []EntityObs `json:"entities"`
	Events          []Event     `json:"events"`
}

type SelfObs struct {
	Pos      [3]float64 `json:"pos"`
	Rot      Rotation   `json:"rot"`
	GameMode string     `json:"gamemode"`
	Tags     []string   `json:"tags,omitempty"`
}

type EntityObs struct {
	ID   string     `json:"id"`
	Type string     `json:"type"`
	Pos  [3]float64 `json:"pos"`
}

type Event map[string]interface{}

// CORRECTION (server -> client): the client must adopt these values.
type CorrectionMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	ActorID         string      `json:"actor_id"`
	Kind            string      `json:"kind"`
	Pos             *[3]float64 `json:"pos,omitempty"`
	Rot             *Rotation   `json:"rot,omitempty"`
	Impulse         *[3]float64 `json:"impulse,omitempty"`
	Slot            *int        `json:"slot,omitempty"`
	Enchantment     string      `json:"enchantment,omitempty"`
	BlockPos        *[3]int     `json:"block_pos,omitempty"`
	BlockID         string      `json:"block_id,omitempty"`
}

// Correction kinds.
const (
	CorrTeleport         = "TELEPORT"
	CorrImpulse          = "IMPULSE"
	CorrRotation         = "ROTATION"
	CorrRemoveItem       = "REMOVE_ITEM"
	CorrStripEnchantment = "STRIP_ENCHANTMENT"
	CorrCancel           = "CANCEL"
	CorrBlock            = "BLOCK"
)

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
