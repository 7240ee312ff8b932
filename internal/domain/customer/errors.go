package customer

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidRecord = errors.New("invalid customer record")
)
