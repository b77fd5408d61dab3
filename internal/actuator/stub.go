//go:build !linux

package actuator

import (
	"errors"
	"time"
)

// RealActuator is not available on non-Linux platforms.
type RealActuator struct{}

// NewRealActuator returns an error on non-Linux platforms.
func NewRealActuator(pin int, period time.Duration) (*RealActuator, error) {
	return nil, errors.New("actuator: not supported on this platform (requires Linux)")
}

// Write is a no-op stub.
func (a *RealActuator) Write(duty uint8) {}

// Off is a no-op stub.
func (a *RealActuator) Off() {}

// Close is a no-op stub.
func (a *RealActuator) Close() error { return nil }
