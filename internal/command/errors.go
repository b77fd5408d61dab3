package command

import (
	"errors"

	"github.com/sweeney/espresso-controller/internal/mode"
)

// ErrValidation is returned for any input that fails the operation's
// validation rules (spec.md §4.11: "invalid inputs produce a typed
// validation failure").
var ErrValidation = errors.New("command: validation failed")

// ErrInternal is returned for internal faults such as a permanently
// failing configuration write (spec.md §4.11: "internal faults ...
// produce a typed internal failure").
var ErrInternal = errors.New("command: internal failure")

// asValidationError classifies a mode-package error into the two failure
// kinds the Command Interface exposes (spec.md §4.11): an invalid mode
// or duration is a validation failure, anything else (e.g. a
// configuration write failure) is an internal failure.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mode.ErrInvalidMode) || errors.Is(err, mode.ErrInvalidDuration) || errors.Is(err, mode.ErrInvalidTarget) {
		return ErrValidation
	}
	return ErrInternal
}
