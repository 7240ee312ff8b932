package prediction

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidResult = errors.New("invalid prediction result")
)
