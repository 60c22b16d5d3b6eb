package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesagent_backend/internal/alerts"
	"salesagent_backend/internal/conversation/repository"
	"salesagent_backend/internal/conversation/service"
	"salesagent_backend/internal/events"
	"salesagent_backend/internal/scheduler"
	"salesagent_backend/internal/whatsapp"
	"salesagent_backend/platform/config"
	"salesagent_backend/platform/db"
	"salesagent_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	var sender service.MessageSender
	if whatsappClient := whatsapp.NewClient(cfg, log); whatsappClient != nil {
		sender = whatsappClient
	} else {
		log.Warn("WHATSAPP_URL not configured; relance sends will fail")
	}

	alertsModule := alerts.New(sender, cfg, log)
	alertsModule.RegisterHandlers(eventBus)

	// Relances use fixed wording, so the worker needs no text generator.
	orchestrator := service.NewOrchestrator(repository.New(pool), nil, sender, log)

	dispatcher, err := scheduler.NewRelanceDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize relance dispatcher", "error", err)
		panic("failed to initialize relance dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	reaper := scheduler.NewStaleReaper(cfg, pool, log)

	worker, err := scheduler.NewWorker(cfg, pool, orchestrator, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(ctx)
		return nil
	})
	g.Go(func() error {
		reaper.Run(ctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
	}
	log.Info("scheduler shut down")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
