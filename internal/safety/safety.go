// Package safety implements the Safety Supervisor: the pre-PID check
// ordering that enforces hard limits, failure-count shutdowns, and the
// "above setpoint => output 0" rule. It is pure business logic — a
// function of (reading, target, failure count) to a Decision — with no
// external dependencies, matching the teacher's internal/logic package
// discipline.
package safety

// MaxSafeTemp is the hard overtemp limit (spec.md §3 invariant 3).
const MaxSafeTemp = 160.0

// MaxConsecutiveFailures is the sensor-failure shutdown threshold
// (spec.md MAX_CONSECUTIVE_FAILURES = 5).
const MaxConsecutiveFailures = 5

// OvershootLogMargin is the extreme-overshoot log-only threshold above
// target (spec.md rule 4: t > target + 10).
const OvershootLogMargin = 10.0

// Action tells the Control Loop what to do with the Actuator and PID this
// tick.
type Action int

const (
	// ActionSkip means: no PID step, no Actuator write this tick (sensor
	// failure below the shutdown threshold — do not command based on
	// stale data, but do not force 0 either; the actuator keeps whatever
	// duty hardware is already running).
	ActionSkip Action = iota

	// ActionShutdown means: write 0 to the Actuator, skip PID, skip
	// telemetry (sensor failures at/above threshold, or hard overtemp).
	ActionShutdown

	// ActionOverrideZero means: step PID (to keep derivative history
	// current) but write 0 to the Actuator regardless of PID output
	// (at-or-above-setpoint rule).
	ActionOverrideZero

	// ActionNominal means: step PID, clamp, write the PID output.
	ActionNominal
)

// Decision is the Safety Supervisor's verdict for one tick.
type Decision struct {
	Action Action

	// NewFailureCount is the consecutive_failures value after this tick.
	NewFailureCount int

	// EmergencyLog is set when an emergency-severity log line should be
	// emitted (hard overtemp, or extreme overshoot while already
	// overridden to zero).
	EmergencyLog string
}

// OnSensorFailure evaluates rule 1 (spec.md §4.4) given the current
// consecutive failure count before this tick.
func OnSensorFailure(priorFailures int) Decision {
	n := priorFailures + 1
	if n >= MaxConsecutiveFailures {
		return Decision{Action: ActionShutdown, NewFailureCount: n}
	}
	return Decision{Action: ActionSkip, NewFailureCount: n}
}

// Evaluate applies rules 2-5 (spec.md §4.4) for a successful reading. It
// takes no failure count: the returned NewFailureCount is 0 for any
// reading at or below MaxSafeTemp and MaxConsecutiveFailures (latched)
// for a hard overtemp.
func Evaluate(temperature, target float64) Decision {
	if temperature > MaxSafeTemp {
		return Decision{
			Action:          ActionShutdown,
			NewFailureCount: MaxConsecutiveFailures,
			EmergencyLog:    "hard overtemp",
		}
	}

	if temperature >= target {
		d := Decision{Action: ActionOverrideZero, NewFailureCount: 0}
		if temperature > target+OvershootLogMargin {
			d.EmergencyLog = "extreme overshoot"
		}
		return d
	}

	return Decision{Action: ActionNominal, NewFailureCount: 0}
}
