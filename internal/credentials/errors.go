package credentials

import "errors"

// Caller-facing outcomes. Anything else returned by the Authority is a store or
// infrastructure failure and should be treated as an internal error.
var (
	// ErrInvalidCredentials covers unknown accounts, missing secrets and wrong secrets alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidFormat      = errors.New("invalid format")
	ErrAlreadySetToday    = errors.New("pin already set today")
	ErrNotFound           = errors.New("user not found")
)
