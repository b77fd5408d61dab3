package classifier

import "time"

// RecoveryWindow bounds how far back the Recovery Detector looks for a
// temperature peak (spec.md RECOVERY_WINDOW_SECONDS = 60).
const RecoveryWindow = 60 * time.Second

// RecoveryDropThreshold is the minimum drop from the window's peak that
// triggers recovery entry (spec.md RECOVERY_DROP_THRESHOLD = 5).
const RecoveryDropThreshold = 5.0

// RecoveryExitMargin is how far below target exit requires (spec.md:
// exit when t_now >= T - 5).
const RecoveryExitMargin = 5.0

// RecoveryDetector tracks whether the boiler is in a recovery episode
// (e.g. a cold-water refill), engaging a more aggressive PID gain set
// while active.
type RecoveryDetector struct {
	active bool
}

// NewRecoveryDetector creates a detector starting outside recovery.
func NewRecoveryDetector() *RecoveryDetector {
	return &RecoveryDetector{}
}

// Active reports whether recovery is currently engaged.
func (r *RecoveryDetector) Active() bool { return r.active }

// Update examines the window and the current reading against target and
// returns whether recovery is active after this update, and whether the
// state changed on this call (spec.md §4.7).
func (r *RecoveryDetector) Update(now time.Time, tNow, target float64, w *Window) (active bool, changed bool) {
	was := r.active

	if r.active {
		if tNow >= target-RecoveryExitMargin {
			r.active = false
		}
	} else {
		cutoff := now.Add(-RecoveryWindow)
		if tMax, ok := w.MaxSince(cutoff); ok {
			if tMax-tNow >= RecoveryDropThreshold && tNow < target && tNow < tMax {
				r.active = true
			}
		}
	}

	return r.active, r.active != was
}

// Reset forces the detector back to the inactive state. The Control Loop
// does not call it; recovery state changes only through Update.
func (r *RecoveryDetector) Reset() {
	r.active = false
}
