package observerproto

import "voxelguard.ai/internal/sim/integrity/model"

// Version is the observer protocol version (separate from the actor WS protocol).
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeFlag      = "FLAG"
)

// Client -> Server. First message on the observer WS connection; re-sending
// it replaces the filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Empty means every kind.
	Kinds   []string `json:"kinds,omitempty"`
	ActorID string   `json:"actor_id,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	WorldID         string   `json:"world_id"`
	Tick            uint64   `json:"tick"`
	TickRateHz      int      `json:"tick_rate_hz"`
	Kinds           []string `json:"kinds"`
	Subscribers     int      `json:"subscribers"`
}

// Server -> Client, one per reported detection.
type FlagMsg struct {
	Type     string         `json:"type"`
	Tick     uint64         `json:"tick"`
	ActorID  string         `json:"actor_id"`
	Kind     string         `json:"kind"`
	Evidence model.Evidence `json:"evidence,omitempty"`
}

// Filter matches detections against a subscription.
type Filter struct {
	kinds   map[string]bool
	actorID string
}

func NewFilter(sub SubscribeMsg) Filter {
	f := Filter{actorID: sub.ActorID}
	if len(sub.Kinds) > 0 {
		f.kinds = map[string]bool{}
		for _, k := range sub.Kinds {
			f.kinds[k] = true
		}
	}
	return f
}

func (f Filter) Match(ev model.DetectionEvent) bool {
	if f.actorID != "" && ev.ActorID != f.actorID {
		return false
	}
	return f.kinds == nil || f.kinds[string(ev.Kind)]
}
