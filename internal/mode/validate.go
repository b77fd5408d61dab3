package mode

import "time"

// validateModeAndDuration checks target is a recognized mode and, for
// steam, that duration (if present) falls in [10, 600]s, returning the
// resolved duration to arm (spec.md §4.5).
func validateModeAndDuration(target Mode, duration *time.Duration) (time.Duration, error) {
	switch target {
	case Off, Espresso:
		return 0, nil
	case Steam:
		if duration == nil {
			return DefaultSteamDuration, nil
		}
		if *duration < MinSteamDuration || *duration > MaxSteamDuration {
			return 0, ErrInvalidDuration
		}
		return *duration, nil
	default:
		return 0, ErrInvalidMode
	}
}
