package engine

import "errors"

// ErrInvalidInput marks malformed or out-of-domain input to a pure
// computation. It is always surfaced, never silently corrected.
var ErrInvalidInput = errors.New("invalid input")
