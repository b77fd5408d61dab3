package events

import "log/slog"

// MultiPublisher fans Publish* calls out to several Publishers, logging
// (not returning) any individual failure so a broken MQTT bridge never
// blocks the in-process ChannelBus delivery or vice versa, matching
// spec.md §7's "control is never gated on telemetry" posture extended to
// event delivery in general.
type MultiPublisher struct {
	Publishers []Publisher
}

// NewMultiPublisher wraps publishers behind a single Publisher.
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{Publishers: publishers}
}

func (m *MultiPublisher) PublishModeChange(ev ModeChange) error {
	for _, p := range m.Publishers {
		if err := p.PublishModeChange(ev); err != nil {
			slog.Warn("events: publisher failed to deliver mode_change", "error", err)
		}
	}
	return nil
}

func (m *MultiPublisher) PublishMachineState(ev MachineStateChange) error {
	for _, p := range m.Publishers {
		if err := p.PublishMachineState(ev); err != nil {
			slog.Warn("events: publisher failed to deliver machine_state", "error", err)
		}
	}
	return nil
}

func (m *MultiPublisher) Close() error {
	var firstErr error
	for _, p := range m.Publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
