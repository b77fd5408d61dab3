package classifier

import "time"

// StateDetectionWindow bounds how far back classifier rules look for a
// temperature "rise" (spec.md STATE_DETECTION_WINDOW_MS = 60000ms).
const StateDetectionWindow = 60 * time.Second

// MachineState is the observed operating state, distinct from the
// commanded Mode.
type MachineState string

const (
	StateOff     MachineState = "off"
	StateHeating MachineState = "heating"
	StateReady   MachineState = "ready"
	StateUnknown MachineState = "unknown"
)

// Classify derives the machine state from the current reading, output
// percent, target temperature, and the sliding window, applying spec.md
// §4.6 rules in priority order (first match wins).
func Classify(now time.Time, t, outputPercent, target float64, w *Window) MachineState {
	cutoff := now.Add(-StateDetectionWindow)

	// Rule 1: off if cooling under drive.
	if rise, ok := w.RiseSince(cutoff); ok && rise <= -0.3 && outputPercent > 10 {
		return StateOff
	}

	// Rule 2: active zone.
	if t > 80 {
		if t >= target*(1-0.02) {
			return StateReady
		}
		return StateHeating
	}

	// Rule 3: at/above setpoint in cool zone.
	if t >= target*(1-0.02) || t >= target {
		return StateReady
	}

	// Rule 4: rising and warm.
	if rise, ok := w.RiseSince(cutoff); ok && rise >= 1.0 && t > 40 {
		return StateHeating
	}

	// Rule 5: driven but unclear.
	if outputPercent > 20 {
		if t > 40 {
			return StateHeating
		}
		return StateOff
	}

	// Rule 6: default.
	return StateOff
}
