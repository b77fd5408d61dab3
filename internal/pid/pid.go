// Package pid implements a pure discrete PID controller with saturation-
// aware anti-windup. It has no external dependencies and allocates nothing
// after construction, matching the shape of other_examples/timzifer-
// quarc__pid.go and other_examples/Agrid-Dev-thermocktat__regulator.go.
package pid

// SampleInterval is the fixed discrete time step the engine assumes
// between calls to Step (spec.md §4.3: Δt = 1s).
const SampleInterval = 1.0 // seconds

// Gains holds a PID tuning triple.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// Engine is a discrete PID controller. Two gain sets (normal, recovery)
// are maintained by the caller; swapping between them is modeled as
// Reset followed by Reconfigure, per spec.md §4.3 — the integral is
// deliberately discarded on a gain-set swap.
type Engine struct {
	setpoint  float64
	gains     Gains
	outMax    float64
	integral  float64
	prevError float64
	hasPrev   bool
}

// New constructs an Engine with the given setpoint, gains, and output
// ceiling (spec.md default outMax = 255).
func New(setpoint float64, gains Gains, outMax float64) *Engine {
	return &Engine{
		setpoint: setpoint,
		gains:    gains,
		outMax:   outMax,
	}
}

// Step computes the next duty cycle for the given measurement, clamped to
// [0, outMax]. Integral accumulation is suppressed while the unclamped
// output is saturated in the same direction (anti-windup).
func (e *Engine) Step(measurement float64) float64 {
	err := e.setpoint - measurement

	pTerm := e.gains.Kp * err

	dTerm := 0.0
	if e.hasPrev {
		dTerm = e.gains.Kd * (err - e.prevError) / SampleInterval
	}
	e.prevError = err
	e.hasPrev = true

	// Tentatively compute what the integral contribution would be without
	// updating state, so we can check for saturation before committing.
	candidateIntegral := e.integral + e.gains.Ki*err*SampleInterval
	unclamped := pTerm + candidateIntegral + dTerm

	clamped := unclamped
	saturatedHigh := clamped > e.outMax
	saturatedLow := clamped < 0

	if saturatedHigh {
		clamped = e.outMax
	} else if saturatedLow {
		clamped = 0
	}

	// Anti-windup: only commit the integral update if doing so would not
	// push further into the same saturation direction it already caused.
	pushingIntoSaturation := (saturatedHigh && err > 0) || (saturatedLow && err < 0)
	if !pushingIntoSaturation {
		e.integral = candidateIntegral
	}

	return clamped
}

// Reset zeroes the integral and previous-error state, keeping the current
// setpoint and gains. Used on classifier off->heating transitions
// (spec.md invariant 7) and as the first half of a gain-set swap.
func (e *Engine) Reset() {
	e.integral = 0
	e.prevError = 0
	e.hasPrev = false
}

// Reconfigure replaces the setpoint and gains. Per spec.md §4.3 a mode
// swap between gain sets is modeled as Reset followed by Reconfigure —
// callers wanting to discard history (e.g. recovery <-> normal swaps)
// must call Reset first; Reconfigure alone preserves accumulated state
// for an in-place setpoint or gain nudge that should not disturb the
// integral (e.g. a live gain-tuning update at a reload boundary).
func (e *Engine) Reconfigure(setpoint float64, gains Gains) {
	e.setpoint = setpoint
	e.gains = gains
}

// Setpoint returns the engine's current setpoint.
func (e *Engine) Setpoint() float64 { return e.setpoint }

// Gains returns the engine's current gain set.
func (e *Engine) Gains() Gains { return e.gains }

// Integral exposes the current integral accumulator, primarily for tests
// asserting invariant 7 (integral resets to zero on off->heating).
func (e *Engine) Integral() float64 { return e.integral }
