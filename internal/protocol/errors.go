package protocol

// Error codes surfaced in the {ok:false, error:{code,message}} envelope.
const (
	// Feature flag off: no agent token configured.
	ErrDisabled = "DISABLED"

	// Bad or missing token.
	ErrUnauthorized = "UNAUTHORIZED"

	// Malformed or semantically invalid payload, rejected before any
	// state mutation.
	ErrBadRequest     = "BAD_REQUEST"
	ErrInvalidRequest = "INVALID_REQUEST"

	// Observation read before the first publish.
	ErrNoObservation = "NO_OBSERVATION"

	// Unexpected failure, reduced to a message string at the boundary.
	ErrInternal = "INTERNAL_ERROR"
	ErrGeneric  = "ERROR"
)

var knownCodes = map[string]struct{}{
	ErrDisabled:       {},
	ErrUnauthorized:   {},
	ErrBadRequest:     {},
	ErrInvalidRequest: {},
	ErrNoObservation:  {},
	ErrInternal:       {},
	ErrGeneric:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// ErrorBody is the error object inside a failed response envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
