package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"salesagent_backend/internal/conversation/repository"
	"salesagent_backend/platform/config"
	"salesagent_backend/platform/logger"
)

// StaleReaper deactivates conversations that went silent for a full day or
// exhausted their follow-up attempts. The update is a single idempotent
// statement, so overlapping runs are harmless.
type StaleReaper struct {
	repo     *repository.Repository
	log      *logger.Logger
	interval time.Duration

	running sync.Mutex
}

func NewStaleReaper(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) *StaleReaper {
	interval := cfg.GetReaperInterval()
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StaleReaper{
		repo:     repository.New(pool),
		log:      log,
		interval: interval,
	}
}

func (r *StaleReaper) Run(ctx context.Context) {
	if r == nil || r.repo == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !r.running.TryLock() {
			continue
		}
		r.reap(ctx)
		r.running.Unlock()
	}
}

func (r *StaleReaper) reap(ctx context.Context) {
	reaped, err := r.repo.DeactivateStale(ctx, time.Now().UTC())
	if err != nil {
		r.log.Warn("stale reap failed", "error", err)
		return
	}
	if reaped > 0 {
		r.log.Info("stale conversations deactivated", "count", reaped)
	}
}
