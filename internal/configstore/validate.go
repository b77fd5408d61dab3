package configstore

// validateNumeric returns v if it is within [min, max], else fallback.
// This implements spec.md §4.9's "permissive-then-fallback" numeric
// validation: out-of-range values are replaced by the last-known-good
// value, which the caller supplies as fallback.
func validateNumeric(v, min, max, fallback float64) float64 {
	if v < min || v > max {
		return fallback
	}
	return v
}

// validateAgainst rebuilds cfg field-by-field against lkg (the last-
// known-good in-memory snapshot), falling back to lkg's value for any
// field outside its recognized range. lkg itself is assumed already
// valid (it was validated against defaults when it became the LKG).
func validateAgainst(cfg, lkg Config) Config {
	out := cfg
	out.TargetTemperature = validateNumeric(cfg.TargetTemperature, TargetTempMin, TargetTempMax, lkg.TargetTemperature)
	out.EspressoTemperature = validateNumeric(cfg.EspressoTemperature, EspressoTempMin, EspressoTempMax, lkg.EspressoTemperature)
	out.SteamTemperature = validateNumeric(cfg.SteamTemperature, SteamTempMin, SteamTempMax, lkg.SteamTemperature)
	out.Proportional = validateNumeric(cfg.Proportional, PMin, PMax, lkg.Proportional)
	out.Integral = validateNumeric(cfg.Integral, IMin, IMax, lkg.Integral)
	out.Derivative = validateNumeric(cfg.Derivative, DMin, DMax, lkg.Derivative)
	out.RecoveryProportional = validateNumeric(cfg.RecoveryProportional, PMin, PMax, lkg.RecoveryProportional)
	out.RecoveryIntegral = validateNumeric(cfg.RecoveryIntegral, IMin, IMax, lkg.RecoveryIntegral)
	out.RecoveryDerivative = validateNumeric(cfg.RecoveryDerivative, DMin, DMax, lkg.RecoveryDerivative)

	switch cfg.MachineState {
	case "off", "heating", "ready", "unknown":
		out.MachineState = cfg.MachineState
	default:
		out.MachineState = lkg.MachineState
	}
	return out
}

// IsValidTarget reports whether t is a valid set_target argument
// (spec.md §4.11: 0 <= t <= 200).
func IsValidTarget(t float64) bool {
	return t >= TargetTempMin && t <= TargetTempMax
}

// IsValidGainSet reports whether (p, i, d) satisfy the normal-gain ranges
// (spec.md §4.11 set_gains validation).
func IsValidGainSet(p, i, d float64) bool {
	return p >= PMin && p <= PMax && i >= IMin && i <= IMax && d >= DMin && d <= DMax
}
