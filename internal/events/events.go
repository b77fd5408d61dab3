// Package events publishes mode_change and machine_state notifications
// (spec.md §6) to whatever is listening: an in-process channel fan-out for
// the HTTP binding, and optionally an MQTT broker for external dashboards.
// It generalizes the teacher's internal/mqtt.Publisher/SystemEvent shape
// from a fixed boiler-event schema to the two event kinds this core emits.
package events

import (
	"time"

	"github.com/google/uuid"
)

// ModeChangeReason identifies why a mode_change event was emitted
// (spec.md §4.5: "manual | steam_timeout").
type ModeChangeReason string

const (
	ReasonManual      ModeChangeReason = "manual"
	ReasonSteamTimeout ModeChangeReason = "steam_timeout"
)

// ModeChange is published on every Mode Controller transition.
type ModeChange struct {
	CorrelationID string           `json:"correlation_id"`
	Timestamp     time.Time        `json:"timestamp"`
	Mode          string           `json:"mode"`
	Reason        ModeChangeReason `json:"reason"`
}

// MachineStateChange is published on every Classifier transition.
type MachineStateChange struct {
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
	State         string    `json:"state"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Publisher fans events out to subscribers. Implementations must not block
// the caller for long: the Control Loop and Mode Controller call Publish*
// synchronously on their own critical paths.
type Publisher interface {
	PublishModeChange(ModeChange) error
	PublishMachineState(MachineStateChange) error
	Close() error
}

// newCorrelationID stamps a UUID onto every emitted event so external
// consumers (the real-time push layer) can dedupe retries, grounded on
// the correlation-ID convention of GVCUTV-NRG-CHAMP's ledger service.
func newCorrelationID() string {
	return uuid.NewString()
}

// NewModeChange constructs a ModeChange with a fresh correlation ID.
func NewModeChange(now time.Time, mode string, reason ModeChangeReason) ModeChange {
	return ModeChange{
		CorrelationID: newCorrelationID(),
		Timestamp:     now,
		Mode:          mode,
		Reason:        reason,
	}
}

// NewMachineStateChange constructs a MachineStateChange with a fresh
// correlation ID.
func NewMachineStateChange(now time.Time, state string) MachineStateChange {
	return MachineStateChange{
		CorrelationID: newCorrelationID(),
		Timestamp:     now,
		State:         state,
		UpdatedAt:     now,
	}
}
