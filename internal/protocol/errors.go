package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest  = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion     = "E_PROTO_VERSION"
	ErrProtoOutOfOrder  = "E_PROTO_OUT_OF_ORDER"
	ErrWorldBusy        = "E_WORLD_BUSY"
	ErrIllegalName      = "E_ILLEGAL_NAME"
	ErrSessionNotJoined = "E_NOT_JOINED"

	// Rule/action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNoPermission  = "E_NO_PERMISSION"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrRateLimit     = "E_RATE_LIMIT"
	ErrBlocked       = "E_BLOCKED"
	ErrStale         = "E_STALE"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoVersion:     {},
	ErrProtoOutOfOrder:  {},
	ErrWorldBusy:        {},
	ErrIllegalName:      {},
	ErrSessionNotJoined: {},
	ErrBadRequest:       {},
	ErrNoPermission:     {},
	ErrInvalidTarget:    {},
	ErrRateLimit:        {},
	ErrBlocked:          {},
	ErrStale:            {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
