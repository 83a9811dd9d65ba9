package entity

import "errors"

// Domain errors
var (
	// Pipeline errors
	ErrRetrievalUnavailable = errors.New("retrieval index unavailable")
	ErrGenerationFailure    = errors.New("answer generation failed")
	ErrSessionUnavailable   = errors.New("session store unavailable")

	// Validation errors
	ErrMalformedInput   = errors.New("malformed input")
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidFormat    = errors.New("invalid format")
)

// IsMalformedInput reports whether err was caused by a bad client request.
func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrInvalidFormat)
}
