package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)
	uow := repository.NewTxManager(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	membership := service.NewCachedMembershipValidator(memberRepo, redis.Client, cfg.Redis.MembershipCacheTTL(), logger)
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		Members:    membership,
		MemberRepo: memberRepo,
		UnitOfWork: uow,
		Dispatcher: dispatcher,
	})
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		UnitOfWork:  uow,
		Assignments: assignmentService,
		Dispatcher:  dispatcher,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	tokenManager := auth.NewTokenManager(cfg.Session.JWTSecret)
	sessionMiddleware := auth.NewSessionMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:           handlers.NewTicketsHandler(lifecycleService),
		Support:           handlers.NewSupportHandler(lifecycleService, assignmentService),
		Members:           handlers.NewMembersHandler(assignmentService),
		SessionMiddleware: sessionMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
