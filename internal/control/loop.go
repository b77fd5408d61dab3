// Package control is the composition root for the 1 Hz Control Loop
// (spec.md §4.10): it wires Sensor, Safety Supervisor, Recovery Detector,
// PID Engine, Actuator, State Classifier, and Telemetry Store together,
// following the teacher's runLoop shape (select over a ticker and a
// signal/context channel) with the GPIO-read/debounce/MQTT-publish body
// replaced by this core's tick pseudocontract.
package control

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/espresso-controller/internal/actuator"
	"github.com/sweeney/espresso-controller/internal/classifier"
	"github.com/sweeney/espresso-controller/internal/configstore"
	"github.com/sweeney/espresso-controller/internal/events"
	"github.com/sweeney/espresso-controller/internal/pid"
	"github.com/sweeney/espresso-controller/internal/safety"
	"github.com/sweeney/espresso-controller/internal/sensor"
	"github.com/sweeney/espresso-controller/internal/telemetry"
)

// TickInterval is the Control Loop's tick period (spec.md §4.10).
const TickInterval = 1 * time.Second

// Loop owns the sensor window, PID engine, and per-tick book-keeping that
// spec.md §5 names as exclusively Control-Loop-owned state.
type Loop struct {
	sensorR   sensor.Reader
	act       actuator.Actuator
	store     *configstore.Store
	tel       *telemetry.Store
	publisher events.Publisher
	now       func() time.Time

	window   *classifier.Window
	recovery *classifier.RecoveryDetector
	engine   *pid.Engine

	mu      sync.Mutex
	running bool

	consecutiveFailures int
	prevState            classifier.MachineState
	resetArmed            bool
}

// New constructs a Loop. The PID engine starts with the currently loaded
// configuration's normal gains and setpoint.
func New(sensorR sensor.Reader, act actuator.Actuator, store *configstore.Store, tel *telemetry.Store, publisher events.Publisher, now func() time.Time) *Loop {
	if now == nil {
		now = time.Now
	}
	cfg := store.Load()
	p, i, d := cfg.NormalGains()

	return &Loop{
		sensorR:   sensorR,
		act:       act,
		store:     store,
		tel:       tel,
		publisher: publisher,
		now:       now,
		window:    classifier.NewWindow(classifier.HistorySize),
		recovery:  classifier.NewRecoveryDetector(),
		engine:    pid.New(cfg.TargetTemperature, pid.Gains{Kp: p, Ki: i, Kd: d}, 255),
		prevState: classifier.StateUnknown,
	}
}

// Tick executes one iteration of spec.md §4.10's pseudocontract. It is
// safe to call concurrently with itself: a tick already in flight causes
// a later call to return immediately (the "skip this tick" branch, since
// occasional sensor timeouts can approach the tick period).
func (l *Loop) Tick(now time.Time) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	cfg := l.store.Load()
	target := cfg.TargetTemperature

	reading, err := l.sensorR.Read()
	if err != nil {
		decision := safety.OnSensorFailure(l.consecutiveFailures)
		l.consecutiveFailures = decision.NewFailureCount
		slog.Warn("control: sensor read failed", "error", err, "consecutive_failures", l.consecutiveFailures)
		if decision.Action == safety.ActionShutdown {
			l.act.Off()
		}
		return
	}
	l.consecutiveFailures = 0
	l.window.Push(classifier.Sample{Time: reading.Timestamp, Temperature: reading.Temperature})

	decision := safety.Evaluate(reading.Temperature, target)
	l.consecutiveFailures = decision.NewFailureCount
	if decision.EmergencyLog != "" {
		slog.Error("control: "+decision.EmergencyLog, "temperature", reading.Temperature, "target", target)
	}
	if decision.Action == safety.ActionShutdown {
		l.act.Off()
		return
	}

	recoveryActive, changed := l.recovery.Update(now, reading.Temperature, target, l.window)
	l.applyGainProfile(cfg, target, recoveryActive, changed)

	dutyRaw := l.engine.Step(reading.Temperature)
	outputPercent := dutyRaw / 255.0 * 100.0

	state := classifier.Classify(now, reading.Temperature, outputPercent, target, l.window)

	if l.prevState == classifier.StateOff && state == classifier.StateHeating && !l.resetArmed {
		l.engine.Reset()
		dutyRaw = l.engine.Step(reading.Temperature)
		outputPercent = dutyRaw / 255.0 * 100.0
		l.resetArmed = true
	}
	if state == classifier.StateOff {
		l.resetArmed = false
	}

	var duty uint8
	if reading.Temperature >= target {
		duty = 0
	} else {
		duty = clampDuty(dutyRaw)
	}
	l.act.Write(duty)

	if state != l.prevState {
		l.persistStateChange(now, state)
	}
	l.prevState = state

	pidMode := telemetry.ModeNormal
	if recoveryActive {
		pidMode = telemetry.ModeRecovery
	}
	rec := telemetry.Record{
		Temperature: reading.Temperature,
		Output:      outputPercent,
		Timestamp:   now.UnixMilli(),
		PIDMode:     pidMode,
	}
	if err := l.tel.EnqueueIfRecordable(string(state), rec, now); err != nil {
		slog.Warn("control: telemetry enqueue failed", "error", err)
	}
}

// applyGainProfile implements §4.10's "if recovery changed: Engine :=
// Engine.reconfigure(gains_for(recovery))" and, orthogonally, picks up a
// config-driven setpoint/gain edit at the next tick boundary (spec.md
// §4.9). A recovery-state change discards the integral (spec.md §4.3:
// "a mode swap is modeled as reset() followed by new(...)"); a plain
// config reload does not.
func (l *Loop) applyGainProfile(cfg configstore.Config, target float64, recoveryActive, changed bool) {
	gains := gainsFor(cfg, recoveryActive)

	if changed {
		l.engine.Reset()
		l.engine.Reconfigure(target, gains)
		return
	}

	if gains != l.engine.Gains() || target != l.engine.Setpoint() {
		l.engine.Reconfigure(target, gains)
	}
}

func gainsFor(cfg configstore.Config, recoveryActive bool) pid.Gains {
	var p, i, d float64
	if recoveryActive {
		p, i, d = cfg.RecoveryGains()
	} else {
		p, i, d = cfg.NormalGains()
	}
	return pid.Gains{Kp: p, Ki: i, Kd: d}
}

// persistStateChange writes the new machine_state to Configuration (so
// external observers can read it without subscribing to the event
// stream, spec.md §4.6) and publishes a machine_state event.
func (l *Loop) persistStateChange(now time.Time, state classifier.MachineState) {
	updatedAt := now.UTC().Format(time.RFC3339)
	if err := l.store.UpdateField(func(cfg *configstore.Config) {
		cfg.MachineState = string(state)
		cfg.MachineStateUpdated = updatedAt
	}); err != nil {
		slog.Warn("control: failed to persist machine_state", "error", err)
	}
	if l.publisher != nil {
		_ = l.publisher.PublishMachineState(events.NewMachineStateChange(now, string(state)))
	}
}

func clampDuty(raw float64) uint8 {
	if raw <= 0 {
		return 0
	}
	if raw >= 255 {
		return 255
	}
	return uint8(raw)
}

// Shutdown drives the actuator off, flushes buffered telemetry, and
// closes the config store, independently and best-effort (spec.md §5:
// "failure of one must not prevent the others").
func (l *Loop) Shutdown() {
	l.act.Off()
	if err := l.tel.Flush(); err != nil {
		slog.Warn("control: telemetry flush on shutdown failed", "error", err)
	}
	if err := l.store.Close(); err != nil {
		slog.Warn("control: config store close on shutdown failed", "error", err)
	}
}
