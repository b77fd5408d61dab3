// Package configstore owns the on-disk JSON configuration document:
// atomic whole-file replacement, permissive-then-fallback numeric
// validation, last-known-good tracking, and polled reload. It generalizes
// the teacher's internal/status.Config (an in-memory-only struct) into a
// persisted, reloadable document, following the same field-to-JSON-tag
// convention as internal/status/json.go and internal/web/json.go.
package configstore

import "time"

// Recognized field bounds and defaults (spec.md §3 table).
const (
	TargetTempMin, TargetTempMax     = 0.0, 200.0
	EspressoTempMin, EspressoTempMax = 80.0, 150.0
	SteamTempMin, SteamTempMax       = 80.0, 150.0
	PMin, PMax                       = 0.0, 10.0
	IMin, IMax                       = 0.0, 5.0
	DMin, DMax                       = 0.0, 100.0
)

// Defaults are the compiled-in fallback values (spec.md §3 table).
var Defaults = Config{
	TargetTemperature:      100,
	EspressoTemperature:    100,
	SteamTemperature:       140,
	Proportional:           4.0,
	Integral:               0.1,
	Derivative:             5.0,
	RecoveryProportional:   6.0,
	RecoveryIntegral:       0.2,
	RecoveryDerivative:     8.0,
	MachineState:           "unknown",
}

// Config is the recognized subset of the on-disk document. Unknown keys
// encountered on load are preserved separately (see document.go) and
// written back untouched.
type Config struct {
	TargetTemperature   float64 `json:"target_temperature"`
	EspressoTemperature float64 `json:"espresso_temperature"`
	SteamTemperature    float64 `json:"steam_temperature"`

	Proportional float64 `json:"proportional"`
	Integral     float64 `json:"integral"`
	Derivative   float64 `json:"derivative"`

	RecoveryProportional float64 `json:"recovery_proportional"`
	RecoveryIntegral     float64 `json:"recovery_integral"`
	RecoveryDerivative   float64 `json:"recovery_derivative"`

	MachineState        string `json:"machine_state"`
	MachineStateUpdated string `json:"machine_state_updated"`
}

// NormalGains extracts the normal-mode PID gains.
func (c Config) NormalGains() (p, i, d float64) {
	return c.Proportional, c.Integral, c.Derivative
}

// RecoveryGains extracts the recovery-mode PID gains.
func (c Config) RecoveryGains() (p, i, d float64) {
	return c.RecoveryProportional, c.RecoveryIntegral, c.RecoveryDerivative
}

// SetpointFieldFor resolves the setpoint field name for a given mode name
// ("off", "espresso", "steam") used by the Mode Controller.
func SetpointFieldFor(modeName string) string {
	switch modeName {
	case "espresso":
		return "espresso_temperature"
	case "steam":
		return "steam_temperature"
	default:
		return ""
	}
}

// nowISO8601 formats t the way machine_state_updated is written
// (spec.md §3: an ISO-8601 instant).
func nowISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
