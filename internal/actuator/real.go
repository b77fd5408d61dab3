//go:build linux

package actuator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// DefaultCarrierPeriod is the software-PWM carrier period. It is kept at
// the tick period (1s) so at most one carrier cycle is ever in flight
// between control loop ticks.
const DefaultCarrierPeriod = 1 * time.Second

// RealActuator drives the heater SSR over a Linux GPIO character device
// line using software PWM: the line is held high for duty/255 of each
// carrier period and low for the remainder.
type RealActuator struct {
	mu       sync.Mutex
	chip     *gpiocdev.Chip
	line     *gpiocdev.Line
	period   time.Duration
	duty     uint8
	stopCh   chan struct{}
	doneCh   chan struct{}
	closed   bool
}

// NewRealActuator requests pin as an output line and starts the PWM carrier
// goroutine at duty 0.
func NewRealActuator(pin int, period time.Duration) (*RealActuator, error) {
	if period <= 0 {
		period = DefaultCarrierPeriod
	}

	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request actuator pin %d: %w", pin, err)
	}

	a := &RealActuator{
		chip:   chip,
		line:   line,
		period: period,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go a.carrier()
	return a, nil
}

// Write clamps to [0, 255] defensively and sets the commanded duty cycle.
// The next carrier cycle picks it up; callers on the control loop never
// block waiting for the carrier.
func (a *RealActuator) Write(duty uint8) {
	a.mu.Lock()
	a.duty = duty
	a.mu.Unlock()
}

// Off drives duty to 0 and forces the line low immediately, retrying once
// on a gpiocdev error. It never returns an error.
func (a *RealActuator) Off() {
	a.mu.Lock()
	a.duty = 0
	a.mu.Unlock()

	if err := a.line.SetValue(0); err != nil {
		slog.Error("actuator: off write failed, retrying", "error", err)
		if err := a.line.SetValue(0); err != nil {
			slog.Error("actuator: off retry failed, relying on carrier goroutine", "error", err)
		}
	}
}

func (a *RealActuator) carrier() {
	defer close(a.doneCh)
	for {
		a.mu.Lock()
		duty := a.duty
		a.mu.Unlock()

		if duty == 0 {
			a.setValue(0)
			select {
			case <-a.stopCh:
				return
			case <-time.After(a.period):
				continue
			}
		}
		if duty == 255 {
			a.setValue(1)
			select {
			case <-a.stopCh:
				return
			case <-time.After(a.period):
				continue
			}
		}

		onFor := time.Duration(float64(a.period) * float64(duty) / 255.0)
		offFor := a.period - onFor

		a.setValue(1)
		select {
		case <-a.stopCh:
			return
		case <-time.After(onFor):
		}
		a.setValue(0)
		select {
		case <-a.stopCh:
			return
		case <-time.After(offFor):
		}
	}
}

func (a *RealActuator) setValue(v int) {
	if err := a.line.SetValue(v); err != nil {
		slog.Error("actuator: carrier write failed", "value", v, "error", err)
	}
}

// Close stops the PWM carrier, forces the line low, and releases the chip.
func (a *RealActuator) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.stopCh)
	<-a.doneCh

	var errs []error
	if err := a.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("set line low: %w", err))
	}
	if err := a.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if err := a.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
