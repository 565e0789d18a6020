package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gorental/internal/domain"
	"gorental/internal/metrics"
	"gorental/internal/models"
)

// Reaper periodically removes pending reservations older than the
// retention window, releasing their cars for new bookings. Paid
// reservations are never touched.
type Reaper struct {
	repo      domain.Repository
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
}

func NewReaper(repo domain.Repository, retentionHours, intervalMinutes int, logger *zerolog.Logger) *Reaper {
	if retentionHours <= 0 {
		retentionHours = models.PendingRetentionHours
	}
	if intervalMinutes <= 0 {
		intervalMinutes = models.ReaperIntervalMinutes
	}
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "reaper").Logger()
	}
	return &Reaper{
		repo:      repo,
		retention: time.Duration(retentionHours) * time.Hour,
		interval:  time.Duration(intervalMinutes) * time.Minute,
		log:       log,
	}
}

// Start runs the sweep loop until ctx is done. One sweep runs
// immediately so a restart does not extend expired holds.
func (r *Reaper) Start(ctx context.Context) {
	r.log.Info().Dur("interval", r.interval).Dur("retention", r.retention).Msg("reaper started")
	defer r.log.Info().Msg("reaper stopped")

	r.Sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep deletes pending reservations created before the retention
// cutoff and reports how many were removed.
func (r *Reaper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.retention)
	removed, err := r.repo.ReapStalePending(ctx, cutoff)
	if err != nil {
		r.log.Error().Err(err).Msg("reap sweep failed")
		return
	}
	if removed > 0 {
		metrics.AddReaped(removed)
		r.log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("stale pending reservations removed")
	}
}
