package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesagent_backend/internal/alerts"
	"salesagent_backend/internal/conversation"
	"salesagent_backend/internal/conversation/repository"
	"salesagent_backend/internal/conversation/service"
	"salesagent_backend/internal/events"
	apphttp "salesagent_backend/internal/http"
	"salesagent_backend/internal/http/router"
	"salesagent_backend/internal/whatsapp"
	"salesagent_backend/platform/ai/gemini"
	"salesagent_backend/platform/config"
	"salesagent_backend/platform/db"
	"salesagent_backend/platform/logger"
	"salesagent_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	if err := validator.RegisterGinValidators(); err != nil {
		log.Error("failed to register validators", "error", err)
		panic("failed to register validators: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)

	var sender service.MessageSender
	if whatsappClient := whatsapp.NewClient(cfg, log); whatsappClient != nil {
		sender = whatsappClient
		log.Info("messaging gateway configured", "url", cfg.GetWhatsAppURL())
	} else {
		log.Warn("WHATSAPP_URL not configured; outbound messages disabled")
	}

	var generator service.TextGenerator
	geminiClient, err := gemini.NewClient(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize gemini client", "error", err)
		panic("failed to initialize gemini client: " + err.Error())
	}
	if geminiClient != nil {
		generator = geminiClient
		log.Info("text generation configured", "model", cfg.GetGeminiModel())
	} else {
		log.Warn("GEMINI_API_KEY not configured; generated replies disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	repo := repository.New(pool)
	orchestrator := service.NewOrchestrator(repo, generator, sender, log)
	engine := service.NewEngine(repo, orchestrator, eventBus, log, cfg.GetChannelSuffix())

	conversationModule := conversation.NewModule(engine, cfg, log)

	// Operator alerts subscribe to escalation events (not HTTP-facing).
	alertsModule := alerts.New(sender, cfg, log)
	alertsModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			conversationModule,
		},
	}

	ginEngine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- ginEngine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
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
