package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/campus-service/internal/api/http"
	"github.com/spec-kit/campus-service/internal/api/http/handlers"
	"github.com/spec-kit/campus-service/internal/auth"
	"github.com/spec-kit/campus-service/internal/config"
	"github.com/spec-kit/campus-service/internal/events"
	"github.com/spec-kit/campus-service/internal/observability"
	"github.com/spec-kit/campus-service/internal/persistence"
	"github.com/spec-kit/campus-service/internal/policy"
	"github.com/spec-kit/campus-service/internal/realtime"
	"github.com/spec-kit/campus-service/internal/repository"
	"github.com/spec-kit/campus-service/internal/service"
	"github.com/spec-kit/campus-service/internal/worker"
)

const (
	notificationQueueSize = 128
	notificationWorkers   = 4
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the realtime websocket server",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	moderation, err := policy.FromNames(cfg.Moderation.PrivilegedRoles)
	if err != nil {
		return fmt.Errorf("moderation policy: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		return errors.New("POSTGRES_DSN is required to serve")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	hub := realtime.NewHub(logger.Named("realtime"), metrics)
	dispatcher := events.NewInMemoryDispatcher()
	checks := []handlers.DependencyCheck{{Name: "postgres", Pinger: pg}}

	if cfg.Realtime.RedisEnabled {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		relay := realtime.NewRedisRelay(redis.Client, cfg.Realtime.RedisChannel, hub, logger.Named("relay"))
		dispatcher.SubscribeAll(relay.Publish)
		go worker.Supervise(ctx, "realtime-relay", relay, logger)
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Pinger: redis})
	} else {
		dispatcher.SubscribeAll(hub.HandleEvent)
	}

	userRepo := repository.NewUserRepository(pool)
	communityRepo := repository.NewCommunityRepository(pool)
	discussionRepo := repository.NewDiscussionRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	newsRepo := repository.NewNewsRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: userRepo,
		Logger:   logger,
	})
	discussionService := service.NewDiscussionService(service.DiscussionDependencies{
		DiscussionRepo: discussionRepo,
		MessageRepo:    messageRepo,
		UserRepo:       userRepo,
		CommunityRepo:  communityRepo,
		TxRunner:       repository.NewTxRunner(pg),
		Publisher:      dispatcher,
		Policy:         moderation,
		Logger:         logger,
	})
	communityService := service.NewCommunityService(service.CommunityDependencies{
		CommunityRepo: communityRepo,
		UserRepo:      userRepo,
		Logger:        logger,
	})
	newsService := service.NewNewsService(service.NewsDependencies{
		NewsRepo:         newsRepo,
		UserRepo:         userRepo,
		SubscriptionRepo: subscriptionRepo,
		Publisher:        dispatcher,
		Logger:           logger,
	})
	notificationService := service.NewNotificationService(
		dispatcher,
		subscriptionRepo,
		service.HTTPPusher{Timeout: cfg.Notification.PushTimeout()},
		logger.Named("notifications"),
		cfg.Notification,
		notificationQueueSize,
	)
	notifier := worker.StartNotificationWorker(ctx, notificationService, notificationWorkers, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, hub, checks...),
		Auth:           handlers.NewAuthHandler(authService),
		Discussions:    handlers.NewDiscussionsHandler(discussionService),
		Communities:    handlers.NewCommunitiesHandler(communityService, discussionService),
		News:           handlers.NewNewsHandler(newsService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		Policy:         moderation,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	rt := realtime.NewServer(cfg.Realtime, hub, logger.Named("realtime"), metrics)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := rt.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("realtime server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
		logger.Error("server failed, shutting down", zap.Error(serveErr))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownGrace())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		if err := rt.Shutdown(shutdownCtx); err != nil {
			logger.Warn("realtime shutdown", zap.Error(err))
		}
		notifier.Wait()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown grace period elapsed, exiting", zap.Duration("grace", cfg.App.ShutdownGrace()))
	}
	return serveErr
}
