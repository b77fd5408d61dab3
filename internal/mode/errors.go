package mode

import "errors"

// ErrInvalidMode is returned by SetMode for an unrecognized mode name.
var ErrInvalidMode = errors.New("mode: invalid mode")

// ErrInvalidDuration is returned by SetMode when a steam duration falls
// outside [10, 600] seconds.
var ErrInvalidDuration = errors.New("mode: steam duration out of range")

// ErrInvalidTarget is returned by SetTarget when t falls outside [0, 200].
var ErrInvalidTarget = errors.New("mode: target out of range")
