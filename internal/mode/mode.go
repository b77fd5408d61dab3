// Package mode implements the Mode Controller (spec.md §4.5): the
// off/espresso/steam state machine, the self-terminating steam watchdog,
// and per-mode setpoint persistence into the Configuration Store. It
// generalizes the teacher's internal/status.Tracker RWMutex-guarded
// snapshot pattern from a read-only status view to a read-write command
// surface, the way SPEC_FULL.md §4.5 describes.
package mode

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/espresso-controller/internal/configstore"
	"github.com/sweeney/espresso-controller/internal/events"
)

// Mode is one of the three total operating regimes (spec.md §3).
type Mode string

const (
	Off      Mode = "off"
	Espresso Mode = "espresso"
	Steam    Mode = "steam"
)

// DefaultSteamDuration is used when set_mode(steam) omits a duration
// (spec.md §4.5: "absent → 300 s default").
const DefaultSteamDuration = 300 * time.Second

// MinSteamDuration and MaxSteamDuration bound an explicit steam duration
// (spec.md §4.5: "duration ∈ [10, 600] seconds").
const (
	MinSteamDuration = 10 * time.Second
	MaxSteamDuration = 600 * time.Second
)

// Snapshot is the result of get_mode() (spec.md §4.11).
type Snapshot struct {
	Mode           Mode
	Target         float64
	EspressoPref   float64
	SteamPref      float64
	SteamRemaining *time.Duration
	MachineState   string
}

// Controller owns current_mode and the steam watchdog timer, both guarded
// by the same mutex, per spec.md §4.5.
type Controller struct {
	mu sync.Mutex

	store     *configstore.Store
	publisher events.Publisher
	now       func() time.Time

	stored   Mode
	deadline time.Time
	armed    bool
	watchdog *time.Timer
	genID    uint64 // invalidates stale watchdog firings after re-entrance/cancel
}

// New creates a Controller starting in Off, backed by store for setpoint
// persistence and publisher for mode_change events.
func New(store *configstore.Store, publisher events.Publisher, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{store: store, publisher: publisher, now: now, stored: Off}
}

// Current returns steam if and only if the watchdog is armed, otherwise
// the stored mode — the watchdog's presence is the source of truth while
// it lives (spec.md §4.5), preventing races between "mode written" and
// "timer fired."
func (c *Controller) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	cfg := c.store.Load()

	reported := c.stored
	var remaining *time.Duration
	if c.armed {
		reported = Steam
		d := c.deadline.Sub(c.now())
		if d < 0 {
			d = 0
		}
		remaining = &d
	}

	return Snapshot{
		Mode:         reported,
		Target:       cfg.TargetTemperature,
		EspressoPref: cfg.EspressoTemperature,
		SteamPref:    cfg.SteamTemperature,
		SteamRemaining: remaining,
		MachineState: cfg.MachineState,
	}
}

// SetMode validates target and duration, resolves and persists the new
// setpoint, arms or cancels the steam watchdog, and emits a mode_change
// event (spec.md §4.5).
func (c *Controller) SetMode(target Mode, duration *time.Duration) (Snapshot, error) {
	return c.setMode(target, duration, events.ReasonManual)
}

func (c *Controller) setMode(target Mode, duration *time.Duration, reason events.ModeChangeReason) (Snapshot, error) {
	resolvedDuration, err := validateModeAndDuration(target, duration)
	if err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if target != Steam && target == c.currentModeLocked() {
		// Round-trip law (spec.md §8): set_mode(x); set_mode(x) for the
		// same non-steam x must leave state identical and must not emit
		// a second mode_change. Steam is excluded: re-entrance while
		// already in steam is defined to extend the watchdog, so it is
		// never a no-op even though the reported mode is unchanged.
		return c.snapshotLocked(), nil
	}

	setpoint, err := c.resolveSetpointLocked(target)
	if err != nil {
		return Snapshot{}, err
	}

	if werr := c.store.UpdateField(func(cfg *configstore.Config) {
		cfg.TargetTemperature = setpoint
	}); werr != nil {
		return Snapshot{}, fmt.Errorf("mode: persist setpoint: %w", werr)
	}

	c.cancelWatchdogLocked()
	c.stored = target

	if target == Steam {
		c.armWatchdogLocked(resolvedDuration)
	}

	c.publish(reason)
	return c.snapshotLocked(), nil
}

// SetTarget validates t and updates both target_temperature and the
// active per-mode preference (spec.md §4.5).
func (c *Controller) SetTarget(t float64) error {
	if !configstore.IsValidTarget(t) {
		return ErrInvalidTarget
	}

	c.mu.Lock()
	mode := c.currentModeLocked()
	c.mu.Unlock()

	return c.store.UpdateField(func(cfg *configstore.Config) {
		cfg.TargetTemperature = t
		switch mode {
		case Espresso:
			cfg.EspressoTemperature = t
		case Steam:
			cfg.SteamTemperature = t
		}
	})
}

func (c *Controller) currentModeLocked() Mode {
	if c.armed {
		return Steam
	}
	return c.stored
}

func (c *Controller) resolveSetpointLocked(target Mode) (float64, error) {
	cfg := c.store.Load()
	switch target {
	case Off:
		return 0, nil
	case Espresso:
		return cfg.EspressoTemperature, nil
	case Steam:
		return cfg.SteamTemperature, nil
	default:
		return 0, ErrInvalidMode
	}
}

// cancelWatchdogLocked stops any outstanding timer and bumps genID so a
// race with an in-flight fire is a no-op (idempotent cancellation per
// spec.md §5).
func (c *Controller) cancelWatchdogLocked() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
	c.armed = false
	c.genID++
}

func (c *Controller) armWatchdogLocked(d time.Duration) {
	c.armed = true
	c.deadline = c.now().Add(d)
	gen := c.genID
	c.watchdog = time.AfterFunc(d, func() { c.onWatchdogFired(gen) })
}

// onWatchdogFired runs on the timer's own goroutine; gen guards against a
// stale fire racing a cancellation or re-arm that happened between the
// timer firing and this callback acquiring the lock.
func (c *Controller) onWatchdogFired(gen uint64) {
	c.mu.Lock()
	if gen != c.genID {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if _, err := c.setMode(Espresso, nil, events.ReasonSteamTimeout); err != nil {
		// Resolution failure on a watchdog-driven transition has nowhere
		// to surface but the log; the operator sees machine_state instead.
		_ = err
	}
}

func (c *Controller) publish(reason events.ModeChangeReason) {
	if c.publisher == nil {
		return
	}
	ev := events.NewModeChange(c.now(), string(c.stored), reason)
	_ = c.publisher.PublishModeChange(ev)
}

// Close cancels any outstanding watchdog without emitting a transition
// event, for use during shutdown.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelWatchdogLocked()
}
