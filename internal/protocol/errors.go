package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Uncraft requests.
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrNoRecipe    = "E_NO_RECIPE"
	ErrExcluded    = "E_EXCLUDED"
	ErrUnsupported = "E_UNSUPPORTED"
	ErrRateLimit   = "E_RATE_LIMIT"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrNoRecipe:        {},
	ErrExcluded:        {},
	ErrUnsupported:     {},
	ErrRateLimit:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
