package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesagent_backend/internal/conversation/domain"
	"salesagent_backend/internal/conversation/repository"
	"salesagent_backend/internal/conversation/service"
	"salesagent_backend/internal/events"
	"salesagent_backend/platform/config"
	"salesagent_backend/platform/logger"
)

// Worker consumes scheduled tasks. It shares the repository with the API
// process but never the in-process locks, so every mutation here is a
// conditional update that loses gracefully to concurrent activity.
type Worker struct {
	server       *asynq.Server
	mux          *asynq.ServeMux
	repo         *repository.Repository
	orchestrator *service.Orchestrator
	bus          events.Bus
	log          *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, orchestrator *service.Orchestrator, bus events.Bus, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:       server,
		mux:          mux,
		repo:         repository.New(pool),
		orchestrator: orchestrator,
		bus:          bus,
		log:          log,
	}

	mux.HandleFunc(TaskRelanceSend, w.handleRelanceSend)

	return w, nil
}

// handleRelanceSend re-validates the conversation against the live snapshot
// and sends the follow-up. Any change since dispatch (customer replied,
// operator closed, another relance landed) turns the task into a no-op.
func (w *Worker) handleRelanceSend(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRelanceSendPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	conversationID, err := uuid.Parse(payload.ConversationID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := w.log.WithConversationID(payload.ConversationID)

	conv, err := w.repo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	if conv.RelanceCount != payload.Attempt-1 || !domain.ShouldRelance(conv, now) {
		log.Debug("relance no longer due, skipping", "attempt", payload.Attempt)
		return nil
	}

	if _, err := w.orchestrator.Deliver(ctx, conv, service.RelanceMessage(conv, payload.Attempt), nil); err != nil {
		return fmt.Errorf("deliver relance: %w", err)
	}

	updated, err := w.repo.IncrementRelance(ctx, conv.ID, conv.RelanceCount, now)
	if err != nil {
		return fmt.Errorf("record relance: %w", err)
	}
	if !updated {
		// The message went out but the snapshot moved underneath us. Do not
		// retry: retrying would send the customer a second copy.
		log.Warn("relance sent but counter update lost a race", "attempt", payload.Attempt)
		return nil
	}

	log.Info("relance sent", "attempt", payload.Attempt)

	w.bus.Publish(ctx, events.RelanceSent{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		WorkspaceID:    conv.WorkspaceID,
		Attempt:        payload.Attempt,
	})

	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
