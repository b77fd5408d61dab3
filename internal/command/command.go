// Package command implements the Command Interface (spec.md §4.11) as a
// transport-agnostic Go API: every operation returns a result value or a
// typed failure, usable directly from tests and wrapped by a thin HTTP
// binding in internal/web, per SPEC_FULL.md §4.11's framing of the HTTP
// layer as an external collaborator rather than the interface itself.
package command

import (
	"time"

	"github.com/sweeney/espresso-controller/internal/configstore"
	"github.com/sweeney/espresso-controller/internal/mode"
	"github.com/sweeney/espresso-controller/internal/telemetry"
)

// GainName identifies one of the six tunable PID gains for set_gain
// (spec.md §4.11: "name ∈ normal ∪ recovery gain names").
type GainName string

const (
	GainP         GainName = "proportional"
	GainI         GainName = "integral"
	GainD         GainName = "derivative"
	GainRecoveryP GainName = "recovery_proportional"
	GainRecoveryI GainName = "recovery_integral"
	GainRecoveryD GainName = "recovery_derivative"
)

// ModeResult is the result of set_mode/get_mode.
type ModeResult struct {
	Mode           mode.Mode
	Target         float64
	EspressoPref   float64
	SteamPref      float64
	SteamRemaining *time.Duration
	MachineState   string
}

// TargetResult is the result of set_target.
type TargetResult struct {
	Target float64
	Mode   mode.Mode
}

// Gains is the result of set_gains (set_gain returns the single value).
type Gains struct {
	P, I, D float64
}

// StateResult is the result of get_state.
type StateResult struct {
	MachineState string
	UpdatedAt    string
	Description  string
}

// Interface is the Command Interface surface. The HTTP binding in
// internal/web parses requests, calls these methods, and formats
// responses; it implements none of the validation logic itself.
type Interface struct {
	store *configstore.Store
	modes *mode.Controller
	tel   *telemetry.Store
}

// New wires the Command Interface to its three collaborators.
func New(store *configstore.Store, modes *mode.Controller, tel *telemetry.Store) *Interface {
	return &Interface{store: store, modes: modes, tel: tel}
}

// SetMode validates and applies a mode transition (spec.md §4.11).
func (i *Interface) SetMode(target mode.Mode, duration *time.Duration) (ModeResult, error) {
	snap, err := i.modes.SetMode(target, duration)
	if err != nil {
		return ModeResult{}, asValidationError(err)
	}
	return toModeResult(snap), nil
}

// GetMode returns the current mode snapshot (spec.md §4.11).
func (i *Interface) GetMode() ModeResult {
	return toModeResult(i.modes.Current())
}

// SetTarget validates and applies a new setpoint (spec.md §4.11).
func (i *Interface) SetTarget(t float64) (TargetResult, error) {
	if err := i.modes.SetTarget(t); err != nil {
		return TargetResult{}, asValidationError(err)
	}
	snap := i.modes.Current()
	return TargetResult{Target: snap.Target, Mode: snap.Mode}, nil
}

// SetGains validates and writes all three normal-mode gains at once
// (spec.md §4.11).
func (i *Interface) SetGains(p, id, d float64) (Gains, error) {
	if !configstore.IsValidGainSet(p, id, d) {
		return Gains{}, ErrValidation
	}
	if err := i.store.UpdateField(func(cfg *configstore.Config) {
		cfg.Proportional, cfg.Integral, cfg.Derivative = p, id, d
	}); err != nil {
		return Gains{}, ErrInternal
	}
	return Gains{P: p, I: id, D: d}, nil
}

// SetGain validates and writes a single named gain, normal or recovery
// (spec.md §4.11).
func (i *Interface) SetGain(name GainName, v float64) (float64, error) {
	min, max, ok := gainBounds(name)
	if !ok {
		return 0, ErrValidation
	}
	if v < min || v > max {
		return 0, ErrValidation
	}

	err := i.store.UpdateField(func(cfg *configstore.Config) {
		switch name {
		case GainP:
			cfg.Proportional = v
		case GainI:
			cfg.Integral = v
		case GainD:
			cfg.Derivative = v
		case GainRecoveryP:
			cfg.RecoveryProportional = v
		case GainRecoveryI:
			cfg.RecoveryIntegral = v
		case GainRecoveryD:
			cfg.RecoveryDerivative = v
		}
	})
	if err != nil {
		return 0, ErrInternal
	}
	return v, nil
}

// History returns up to limit telemetry records, validated per spec.md
// §4.11 ("1 ≤ limit ≤ 10000").
func (i *Interface) History(limit int) ([]telemetry.Record, error) {
	if limit < 1 || limit > 10000 {
		return nil, ErrValidation
	}
	records, err := i.tel.History(limit, nil)
	if err != nil {
		return nil, ErrInternal
	}
	return records, nil
}

// GetState returns the current machine state with a human-readable
// description (spec.md §4.11).
func (i *Interface) GetState() StateResult {
	cfg := i.store.Load()
	return StateResult{
		MachineState: cfg.MachineState,
		UpdatedAt:    cfg.MachineStateUpdated,
		Description:  describeState(cfg.MachineState),
	}
}

func toModeResult(snap mode.Snapshot) ModeResult {
	return ModeResult{
		Mode:           snap.Mode,
		Target:         snap.Target,
		EspressoPref:   snap.EspressoPref,
		SteamPref:      snap.SteamPref,
		SteamRemaining: snap.SteamRemaining,
		MachineState:   snap.MachineState,
	}
}

func gainBounds(name GainName) (min, max float64, ok bool) {
	switch name {
	case GainP, GainRecoveryP:
		return configstore.PMin, configstore.PMax, true
	case GainI, GainRecoveryI:
		return configstore.IMin, configstore.IMax, true
	case GainD, GainRecoveryD:
		return configstore.DMin, configstore.DMax, true
	default:
		return 0, 0, false
	}
}

func describeState(state string) string {
	switch state {
	case "off":
		return "boiler is off or not responding to commanded heat"
	case "heating":
		return "boiler is heating toward the setpoint"
	case "ready":
		return "boiler is at temperature and ready"
	default:
		return "insufficient data to determine machine state"
	}
}
