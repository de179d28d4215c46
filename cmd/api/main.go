package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/weaver-helpdesk/internal/api/http"
	"github.com/spec-kit/weaver-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/weaver-helpdesk/internal/auth"
	"github.com/spec-kit/weaver-helpdesk/internal/config"
	"github.com/spec-kit/weaver-helpdesk/internal/cooldown"
	"github.com/spec-kit/weaver-helpdesk/internal/deferred"
	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/escalation"
	"github.com/spec-kit/weaver-helpdesk/internal/events"
	"github.com/spec-kit/weaver-helpdesk/internal/export"
	"github.com/spec-kit/weaver-helpdesk/internal/faqsearch"
	"github.com/spec-kit/weaver-helpdesk/internal/lifecycle"
	"github.com/spec-kit/weaver-helpdesk/internal/moderation"
	"github.com/spec-kit/weaver-helpdesk/internal/notify"
	"github.com/spec-kit/weaver-helpdesk/internal/observability"
	"github.com/spec-kit/weaver-helpdesk/internal/persistence"
	"github.com/spec-kit/weaver-helpdesk/internal/repository"
	"github.com/spec-kit/weaver-helpdesk/internal/responder"
	"github.com/spec-kit/weaver-helpdesk/internal/service"
	"github.com/spec-kit/weaver-helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	trackedRepo := repository.NewTrackedTicketRepository(pool)
	faqRepo := repository.NewFAQRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	var (
		limiter  cooldown.Limiter
		jobStore deferred.Store
	)
	if redis.Available() {
		limiter = cooldown.NewRedisLimiter(redis.Client, cfg.Lifecycle.CreationCooldown)
		jobStore = deferred.NewRedisStore(redis.Client)
	} else {
		limiter = cooldown.NewMemoryLimiter(cfg.Lifecycle.CreationCooldown)
		jobStore = deferred.NewMemoryStore()
	}
	jobs := deferred.NewRunner(jobStore, logger.Named("deferred"), deferred.RunnerOptions{
		PollInterval: cfg.Lifecycle.DeferredPollInterval,
	})

	sink := newSink(cfg.Discord, logger)
	llm := responder.New(cfg.Responder, logger)

	dispatcher := worker.NewEventQueue(events.NewInMemoryDispatcher(logger), 0, 0, logger)
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:     dispatcher,
		Sink:           sink,
		Metrics:        metrics,
		Logger:         logger,
		SupportRoleID:  cfg.Discord.SupportRoleID,
		AutoCloseAfter: cfg.Lifecycle.AutoCloseAfter,
	})
	history := service.NewHistoryService(service.HistoryDependencies{
		Dispatcher:  dispatcher,
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		MessageRepo: messageRepo,
		Logger:      logger,
	})
	worker.StartSubscribers(notifications, history)

	assist := service.NewAssistService(service.AssistDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		FAQs:        faqsearch.NewSearcher(faqRepo, logger),
		Responder:   llm,
		Sink:        sink,
		Metrics:     metrics,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		FeedbackRepo: feedbackRepo,
		FAQRepo:      faqRepo,
		Machine: lifecycle.NewMachine(lifecycle.Rules{
			AutoCloseAfter:   cfg.Lifecycle.AutoCloseAfter,
			MaxSubjectLength: cfg.Lifecycle.MaxSubjectLength,
		}),
		Limiter:    limiter,
		Filter:     moderation.NewProfanityFilter(),
		Jobs:       jobs,
		Assistant:  assist,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	jobs.Handle(domain.DeferredJobAutoClose, ticketService.AutoClose)

	faqService := service.NewFAQService(faqRepo, logger)
	reviewService := service.NewReviewService(service.ReviewDependencies{
		TicketRepo:   ticketRepo,
		FeedbackRepo: feedbackRepo,
		TrackedRepo:  trackedRepo,
		Exporter:     export.New(cfg.Notion, logger),
		Metrics:      metrics,
		Logger:       logger,
	})
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, tokens, logger)

	scheduler := escalation.NewScheduler(ticketRepo, llm, sink, metrics, logger, escalation.Options{
		Schedule:      cfg.Lifecycle.EscalationSchedule,
		Warmup:        cfg.Lifecycle.EscalationWarmup,
		Threshold:     cfg.Lifecycle.EscalationThreshold,
		SupportRoleID: cfg.Discord.SupportRoleID,
		Events:        dispatcher,
	})

	jobs.Start(ctx)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("failed to start escalation scheduler", zap.Error(err))
	}

	dependencies := map[string]handlers.Pinger{"postgres": pg}
	if redis.Available() {
		dependencies["redis"] = redis
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics, scheduler),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, history),
		FAQs:           handlers.NewFAQsHandler(faqService),
		Admin:          handlers.NewAdminHandler(faqService, scheduler),
		Review:         handlers.NewReviewHandler(reviewService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	scheduler.Stop()
	jobs.Stop()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := assist.Wait(drainCtx); err != nil {
		logger.Warn("assist replies did not finish", zap.Error(err))
	}
	if err := dispatcher.Stop(drainCtx); err != nil {
		logger.Warn("event queue did not drain", zap.Error(err))
	}
}

func newSink(cfg config.DiscordConfig, logger *zap.Logger) notify.Sink {
	if cfg.BotToken == "" {
		logger.Warn("DISCORD_TOKEN not set; notifications are only logged")
		return notify.NewLogSink(logger)
	}
	sink, err := notify.NewDiscordSink(cfg.BotToken, cfg.LogChannelID, logger)
	if err != nil {
		logger.Fatal("failed to create discord sink", zap.Error(err))
	}
	return sink
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
