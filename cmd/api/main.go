package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sav-service/internal/api/http"
	"github.com/spec-kit/sav-service/internal/api/http/handlers"
	"github.com/spec-kit/sav-service/internal/auth"
	"github.com/spec-kit/sav-service/internal/config"
	"github.com/spec-kit/sav-service/internal/events"
	"github.com/spec-kit/sav-service/internal/observability"
	"github.com/spec-kit/sav-service/internal/persistence"
	"github.com/spec-kit/sav-service/internal/repository"
	"github.com/spec-kit/sav-service/internal/service"
	"github.com/spec-kit/sav-service/internal/sla"
	"github.com/spec-kit/sav-service/internal/worker"
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

	calendar, err := sla.New(cfg.SLA.CalendarConfig())
	if err != nil {
		logger.Fatal("invalid business calendar", zap.Error(err))
	}

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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	ruleRepo := repository.NewCachedSLARuleRepository(
		repository.NewSLARuleRepository(pool),
		redis.Client, redis.KeyPrefix, cfg.SLA.RuleCacheTTL(), logger,
	)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, cfg.Notification).RegisterHandlers()

	slaService := service.NewSLAService(sla.NewClock(calendar), ruleRepo, cfg.SLA.Thresholds, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		SLA:         slaService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	switch {
	case cfg.SLA.SweepSchedule == "":
		logger.Info("sla sweeper disabled")
	case !redis.Enabled():
		logger.Warn("sla sweeper needs redis to remember notified levels; disabled")
	default:
		sweeper, err := worker.NewSLASweeper(cfg.SLA.SweepSchedule, worker.SweeperDependencies{
			Tickets:    ticketService,
			Evaluator:  slaService,
			Levels:     persistence.NewSLALevelStore(redis),
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
		})
		if err != nil {
			logger.Fatal("failed to schedule sla sweeper", zap.Error(err))
		}
		go sweeper.Run(ctx)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, calendar, map[string]handlers.Checker{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		SLA:            handlers.NewSLAHandler(slaService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.JSON(metrics.Snapshot())
	})

	logger.Info("business calendar loaded",
		zap.String("timezone", calendar.Location().String()),
		zap.Int("start_hour", cfg.SLA.StartHour),
		zap.Int("end_hour", cfg.SLA.EndHour),
		zap.Int("holidays", len(cfg.SLA.Holidays)))

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
