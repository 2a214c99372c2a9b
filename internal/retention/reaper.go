// Package retention reclaims rows whose retention window has lapsed. Read
// paths filter on expiry themselves; the reaper only keeps the store from
// growing without bound, so a missed sweep never changes observable behavior.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Store is the persistence surface the reaper sweeps.
type Store interface {
	PurgeExpiredAlerts(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// sweepTimeout bounds a single reclamation pass.
const sweepTimeout = time.Minute

// Reaper periodically purges expired alerts and sessions.
type Reaper struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
	cron   *cron.Cron
}

// New constructs a Reaper. A nil now falls back to time.Now.
func New(store Store, now func() time.Time, logger *slog.Logger) *Reaper {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{store: store, now: now, logger: logger}
}

// Start schedules an hourly sweep. Calling Start on a running reaper is a
// no-op.
func (r *Reaper) Start() {
	if r == nil || r.store == nil || r.cron != nil {
		return
	}

	r.cron = cron.New()
	_, _ = r.cron.AddFunc("10 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := r.Sweep(ctx); err != nil {
			r.logger.Error("retention sweep failed", "error", err)
		}
	})
	r.cron.Start()
	r.logger.Info("retention reaper started")
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	if r == nil || r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
	r.logger.Info("retention reaper stopped")
}

// Sweep runs one reclamation pass immediately.
func (r *Reaper) Sweep(ctx context.Context) error {
	if r == nil || r.store == nil {
		return nil
	}

	now := r.now().UTC()
	purged, err := r.store.PurgeExpiredAlerts(ctx, now)
	if err != nil {
		return err
	}
	if err := r.store.DeleteExpiredSessions(ctx, now); err != nil {
		return err
	}

	if purged > 0 {
		r.logger.Info("purged expired alerts", "count", purged)
	}
	return nil
}
