package command

import (
	"path/filepath"
	"testing"

	"github.com/sweeney/espresso-controller/internal/configstore"
	"github.com/sweeney/espresso-controller/internal/events"
	"github.com/sweeney/espresso-controller/internal/mode"
	"github.com/sweeney/espresso-controller/internal/telemetry"
)

func newTestInterface(t *testing.T) *Interface {
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
	modes := mode.New(store, events.NewFakePublisher(), nil)
	return New(store, modes, tel)
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	i := newTestInterface(t)
	if _, err := i.SetMode(mode.Mode("brew"), nil); err != ErrValidation {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestSetTargetRejectsOutOfRange(t *testing.T) {
	i := newTestInterface(t)
	if _, err := i.SetTarget(200.1); err != ErrValidation {
		t.Errorf("got %v, want ErrValidation", err)
	}
	if _, err := i.SetTarget(200); err != nil {
		t.Errorf("200 should be accepted, got %v", err)
	}
}

func TestSetGainsRejectsOutOfRangeDerivative(t *testing.T) {
	i := newTestInterface(t)
	if _, err := i.SetGains(4.0, 0.1, 100.1); err != ErrValidation {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestSetGainUpdatesNamedGain(t *testing.T) {
	i := newTestInterface(t)
	got, err := i.SetGain(GainRecoveryD, 9.5)
	if err != nil {
		t.Fatalf("SetGain: %v", err)
	}
	if got != 9.5 {
		t.Errorf("got %v, want 9.5", got)
	}
}

func TestSetGainRejectsUnknownName(t *testing.T) {
	i := newTestInterface(t)
	if _, err := i.SetGain(GainName("warmup"), 1.0); err != ErrValidation {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestHistoryRejectsOutOfRangeLimit(t *testing.T) {
	i := newTestInterface(t)
	if _, err := i.History(0); err != ErrValidation {
		t.Errorf("got %v, want ErrValidation", err)
	}
	if _, err := i.History(10001); err != ErrValidation {
		t.Errorf("got %v, want ErrValidation", err)
	}
	if _, err := i.History(1); err != nil {
		t.Errorf("limit 1 should be accepted, got %v", err)
	}
}

func TestGetStateReturnsDescriptionForUnknownState(t *testing.T) {
	i := newTestInterface(t)
	state := i.GetState()
	if state.MachineState != "unknown" {
		t.Errorf("got %v, want unknown at startup", state.MachineState)
	}
	if state.Description == "" {
		t.Error("expected a non-empty description")
	}
}

func TestSetModeSteamThenGetModeReflectsRemaining(t *testing.T) {
	i := newTestInterface(t)
	if _, err := i.SetMode(mode.Steam, nil); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	got := i.GetMode()
	if got.Mode != mode.Steam {
		t.Errorf("got %v, want steam", got.Mode)
	}
	if got.SteamRemaining == nil {
		t.Error("expected non-nil SteamRemaining")
	}
}
