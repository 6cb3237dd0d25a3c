package targets

import "errors"

// ErrInvalidTarget is returned when a target line fails syntax validation.
var ErrInvalidTarget = errors.New("invalid target")
