package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-engine/internal/api/http"
	"github.com/spec-kit/ticket-engine/internal/api/http/handlers"
	"github.com/spec-kit/ticket-engine/internal/audit"
	"github.com/spec-kit/ticket-engine/internal/auth"
	"github.com/spec-kit/ticket-engine/internal/automation"
	"github.com/spec-kit/ticket-engine/internal/config"
	"github.com/spec-kit/ticket-engine/internal/lifecycle"
	"github.com/spec-kit/ticket-engine/internal/notify"
	"github.com/spec-kit/ticket-engine/internal/observability"
	"github.com/spec-kit/ticket-engine/internal/persistence"
	"github.com/spec-kit/ticket-engine/internal/store"
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

	tickets, err := store.NewFileStore(cfg.Store.Dir)
	if err != nil {
		logger.Fatal("failed to open ticket store", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var trail audit.Trail = audit.NewLogTrail(logger)
	var pgTrail *audit.PostgresTrail
	if pool := pg.PoolHandle(); pool != nil {
		pgTrail, err = audit.NewPostgresTrail(ctx, pool)
		if err != nil {
			logger.Fatal("failed to init audit trail", zap.Error(err))
		}
		trail = pgTrail
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if redis.Client != nil {
		notifier = notify.NewRedisNotifier(redis.Client, cfg.Redis.ChannelPrefix, cfg.Panels.StaffRoles)
	}

	metrics := observability.NewMetrics()

	manager := lifecycle.NewManager(lifecycle.Dependencies{
		Store:             tickets,
		Trail:             trail,
		Logger:            logger,
		MaxTicketsPerUser: cfg.Automation.MaxTicketsPerUser,
	})

	sweeper := automation.NewSweeper(manager, notifier, logger, metrics, automation.Config{
		Interval:             cfg.Automation.SweepInterval(),
		AutoCloseEnabled:     cfg.Automation.AutoClose,
		WarningMinutes:       cfg.Automation.InactivityWarningMinutes,
		GraceMinutes:         cfg.Automation.InactivityGraceMinutes,
		StaffReminderMinutes: cfg.Automation.StaffReminderMinutes,
		OverloadLimit:        cfg.Automation.TicketOverloadLimit,
	})
	sweeper.Start(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, tickets, pg, redis),
		Auth:           handlers.NewAuthHandler(cfg.Auth, tokens),
		Tickets:        handlers.NewTicketsHandler(manager, cfg.Panels.WorkingHours),
		Stats:          handlers.NewStatsHandler(manager, metrics),
		Logs:           handlers.NewLogsHandler(pgTrail),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	sweeper.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
