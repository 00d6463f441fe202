package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	SupportedVersions []string `json:"supported_versions,omitempty"`
	ActorName         string   `json:"actor_name"`
	InputMode         string   `json:"input_mode,omitempty"` // "keyboard_mouse","touch","gamepad"
	Auth              *Auth    `json:"auth,omitempty"`
}

type Auth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	ActorID         string         `json:"actor_id"`
	Spawn           [3]float64     `json:"spawn"`
	GameMode        string         `json:"gamemode"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz int     `json:"tick_rate_hz"`
	ChunkSize  [3]int  `json:"chunk_size"`
	SurfaceY   int     `json:"surface_y"`
	BoundaryR  int     `json:"boundary_r"`
	EyeHeight  float64 `json:"eye_height"`
	Seed       int64   `json:"seed"`
}

type CatalogDigests struct {
	BlockPalette       DigestRef `json:"block_palette"`
	ItemPalette        DigestRef `json:"item_palette"`
	EnchantmentsDigest string    `json:"enchantments_digest"`
	TuningDigest       string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}
