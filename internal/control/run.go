package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/sweeney/espresso-controller/internal/configstore"
	"golang.org/x/sync/errgroup"
)

// RetentionSweepInterval is how often the Telemetry Store is pruned
// (spec.md §4.8: "once per hour").
const RetentionSweepInterval = time.Hour

// Run drives the tick ticker, the 10 s configuration reload, and the
// hourly retention sweep as independent goroutines supervised by an
// errgroup, following the teacher's runLoop shape (select over a ticker
// and a cancellation signal) generalized to three concurrent tasks
// instead of one (spec.md §5). ctx cancellation triggers the shutdown
// handler: Actuator.off(), telemetry flush, independently and
// best-effort.
func (l *Loop) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return l.runTicker(ctx) })
	g.Go(func() error { return l.runReload(ctx) })
	g.Go(func() error { return l.runRetentionSweep(ctx) })

	err := g.Wait()
	l.Shutdown()
	return err
}

func (l *Loop) runTicker(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Tick(l.now())
		}
	}
}

func (l *Loop) runReload(ctx context.Context) error {
	ticker := time.NewTicker(configstore.ReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := l.store.Reload(); err != nil {
				slog.Warn("control: config reload failed", "error", err)
			}
		}
	}
}

func (l *Loop) runRetentionSweep(ctx context.Context) error {
	ticker := time.NewTicker(RetentionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.tel.Prune(l.now()); err != nil {
				slog.Warn("control: retention sweep failed", "error", err)
			}
		}
	}
}
