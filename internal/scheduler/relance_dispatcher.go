package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesagent_backend/internal/conversation/domain"
	"salesagent_backend/internal/conversation/repository"
	"salesagent_backend/platform/config"
	"salesagent_backend/platform/logger"
)

// dispatchBatchSize caps how many candidates one sweep enqueues.
const dispatchBatchSize = 100

// RelanceDispatcher periodically scans for conversations whose follow-up is
// due and enqueues one send task per conversation. Sends are staggered so a
// large batch does not burst through the gateway at once.
type RelanceDispatcher struct {
	client   *asynq.Client
	queue    string
	repo     *repository.Repository
	log      *logger.Logger
	interval time.Duration
	spacing  time.Duration

	running sync.Mutex
}

func NewRelanceDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*RelanceDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	interval := cfg.GetRelanceDispatchInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	spacing := cfg.GetRelanceSendSpacing()
	if spacing < 0 {
		spacing = 0
	}

	return &RelanceDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		repo:     repository.New(pool),
		log:      log,
		interval: interval,
		spacing:  spacing,
	}, nil
}

func (d *RelanceDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *RelanceDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !d.running.TryLock() {
			// previous sweep is still going, skip this tick
			continue
		}
		d.sweep(ctx)
		d.running.Unlock()
	}
}

// sweep enqueues due follow-ups. A failed candidate is logged and skipped;
// one broken conversation never blocks the rest of the batch.
func (d *RelanceDispatcher) sweep(ctx context.Context) {
	now := time.Now().UTC()

	candidates, err := d.repo.ListRelanceCandidates(ctx, now, dispatchBatchSize)
	if err != nil {
		d.log.Warn("relance candidate scan failed", "error", err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	enqueued := 0
	for _, conv := range candidates {
		if !domain.ShouldRelance(conv, now) {
			continue
		}

		task, err := NewRelanceSendTask(RelanceSendPayload{
			ConversationID: conv.ID.String(),
			Attempt:        conv.RelanceCount + 1,
		})
		if err != nil {
			d.log.Warn("relance task build failed", "conversation_id", conv.ID, "error", err)
			continue
		}

		runAt := now.Add(time.Duration(enqueued) * d.spacing)
		_, err = d.client.EnqueueContext(ctx, task,
			asynq.ProcessAt(runAt),
			asynq.Queue(d.queue),
			asynq.TaskID(fmt.Sprintf("relance:%s:%d", conv.ID, conv.RelanceCount+1)),
			asynq.Retention(time.Hour),
		)
		if err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				// already scheduled by a previous sweep
				continue
			}
			d.log.Warn("relance enqueue failed", "conversation_id", conv.ID, "error", err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		d.log.Info("relance sweep complete", "due", enqueued, "scanned", len(candidates))
	}
}
