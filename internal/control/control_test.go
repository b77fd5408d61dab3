package control

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/espresso-controller/internal/actuator"
	"github.com/sweeney/espresso-controller/internal/configstore"
	"github.com/sweeney/espresso-controller/internal/events"
	"github.com/sweeney/espresso-controller/internal/sensor"
	"github.com/sweeney/espresso-controller/internal/telemetry"
)

// plant is a first-order thermal lag simulator used as both the Sensor
// and Actuator fakes for the integration-style scenarios below, grounded
// on the teacher's internal/integration_test.go "drive the loop with
// scripted inputs and assert on accumulated effects" style, generalized
// from scripted samples to a closed-loop plant model (spec.md §8 scenario
// 1: "a plant simulator with a 60 s thermal time constant").
type plant struct {
	ambient  float64
	maxTemp  float64
	tau      float64 // seconds
	dt       float64 // seconds
	temp     float64
	duty     uint8
	now      time.Time
	writes   []uint8
	offCalls int
}

func newPlant(initialTemp float64, now time.Time) *plant {
	return &plant{ambient: 20, maxTemp: 130, tau: 60, dt: 1, temp: initialTemp, now: now}
}

func (p *plant) Write(duty uint8) {
	p.duty = duty
	p.writes = append(p.writes, duty)
}

func (p *plant) Off() {
	p.duty = 0
	p.offCalls++
}

func (p *plant) Close() error { return nil }

// step advances the plant by dt seconds toward the steady-state
// temperature implied by the currently commanded duty.
func (p *plant) step() {
	p.now = p.now.Add(time.Duration(p.dt * float64(time.Second)))
	steadyState := p.ambient + (float64(p.duty)/255.0)*(p.maxTemp-p.ambient)
	p.temp += (steadyState - p.temp) * (p.dt / p.tau)
}

func (p *plant) Read() (sensor.Reading, error) {
	p.step()
	return sensor.Reading{Temperature: p.temp, Timestamp: p.now, SourceOK: true}, nil
}

func newTestLoop(t *testing.T, sensorR sensor.Reader, act actuator.Actuator) (*Loop, *configstore.Store, *telemetry.Store) {
	t.Helper()
	store, err := configstore.Open(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("configstore.Open: %v", err)
	}
	tel, err := telemetry.Open(filepath.Join(t.TempDir(), "telemetry.jsonl"))
	if err != nil {
		t.Fatalf("telemetry.Open: %v", err)
	}
	t.Cleanup(func() { tel.Close() })

	l := New(sensorR, act, store, tel, events.NewFakePublisher(), nil)
	return l, store, tel
}

func TestColdStartReachesSetpointWithinTenMinutes(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := newPlant(20, start)
	l, store, _ := newTestLoop(t, p, p)

	target := store.Load().TargetTemperature // 100, per compiled defaults

	sawHeating := false
	maxOvershoot := 0.0
	reachedWithin := -1

	for i := 1; i <= 600; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		l.Tick(now)

		if l.prevState == "heating" {
			sawHeating = true
		}
		if p.temp >= target {
			if over := p.temp - target; over > maxOvershoot {
				maxOvershoot = over
			}
			if p.temp <= target+1 && reachedWithin < 0 {
				reachedWithin = i
			}
		}
		if p.temp >= target && p.duty != 0 {
			t.Fatalf("tick %d: duty %d written while temperature %v >= target %v", i, p.duty, p.temp, target)
		}
	}

	if !sawHeating {
		t.Error("expected machine_state to enter heating during cold start")
	}
	if reachedWithin < 0 {
		t.Fatalf("temperature never settled within [%v, %v]", target, target+1)
	}
	if maxOvershoot > 3 {
		t.Errorf("overshoot %v exceeds +3 degC bound", maxOvershoot)
	}
}

func TestSensorDisconnectShutsDownAfterFiveFailures(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := sensor.NewFakeReader([]float64{95})
	fake.Errors = []error{nil, sensor.ErrTimeout{}, sensor.ErrTimeout{}, sensor.ErrTimeout{}, sensor.ErrTimeout{}, sensor.ErrTimeout{}, sensor.ErrTimeout{}, nil}
	act := actuator.NewFakeActuator()

	l, _, _ := newTestLoop(t, fake, act)

	var writes []uint8
	for i := 0; i < 8; i++ {
		act.Reset()
		l.Tick(start.Add(time.Duration(i) * time.Second))
		if len(act.Writes) > 0 {
			writes = append(writes, act.Writes[len(act.Writes)-1])
		} else if act.OffCalls > 0 {
			writes = append(writes, 0)
		} else {
			writes = append(writes, 255) // sentinel: no write this tick (ActionSkip)
		}
	}

	// index 0 is a valid reading. indices 1-4 are below-threshold
	// failures (ActionSkip, no actuator write). index 5 is the 5th
	// consecutive failure and shuts down; index 6 stays shut down.
	for i := 5; i <= 6; i++ {
		if writes[i] != 0 {
			t.Errorf("tick %d: got duty %v, want 0 (shutdown)", i, writes[i])
		}
	}
}

func TestEmergencyOvertempForcesActuatorOffAndLatchesFailures(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := sensor.NewFakeReader([]float64{165})
	act := actuator.NewFakeActuator()
	l, _, _ := newTestLoop(t, fake, act)

	l.Tick(start)

	if act.OffCalls == 0 {
		t.Error("expected Actuator.Off() to be called on hard overtemp")
	}
	if l.consecutiveFailures < 5 {
		t.Errorf("got consecutive_failures %d, want >= 5", l.consecutiveFailures)
	}
}

func TestColdRefillEngagesRecoveryGains(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// 65 s steady at the setpoint (builds a window peak at 100), then a
	// cold-water-refill-sized drop to 80.
	var samples []float64
	for i := 0; i < 65; i++ {
		samples = append(samples, 100)
	}
	for i := 0; i < 5; i++ {
		samples = append(samples, 80)
	}
	fake := sensor.NewFakeReader(samples)
	act := actuator.NewFakeActuator()
	l, _, _ := newTestLoop(t, fake, act)

	for i := 1; i <= len(samples); i++ {
		l.Tick(start.Add(time.Duration(i) * time.Second))
	}

	if !l.recovery.Active() {
		t.Fatal("expected Recovery Detector to engage after a cold-refill-sized drop")
	}
	if l.engine.Gains().Ki == 0 {
		t.Fatalf("expected non-zero recovery gains applied to the engine")
	}
}
