package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/czhcheng27/project-playground/internal/app"
	jobmetrics "github.com/czhcheng27/project-playground/internal/jobs"
	"github.com/czhcheng27/project-playground/internal/observability"
	"github.com/czhcheng27/project-playground/internal/permission"
	"github.com/czhcheng27/project-playground/internal/platform/cache"
	"github.com/czhcheng27/project-playground/internal/platform/db"
	"github.com/czhcheng27/project-playground/internal/roles"
	"github.com/czhcheng27/project-playground/internal/token"
	"github.com/czhcheng27/project-playground/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokenManager := token.NewManager(redisClient, cfg.TokenSecret, cfg.TokenTTL)
	rolesRepo := roles.NewRepository(pool)
	manifestRepo := permission.NewRepository(pool)
	syncer := permission.NewSyncer(manifestRepo, rolesRepo, logger)

	metrics := observability.NewMetrics()
	jm := jobmetrics.NewMetrics(metrics.Registerer())

	reconcileTask, err := jobs.NewPermissionReconcileTask(jobs.ReconcilePayload{Reason: "scheduled"})
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPermissionReconcile, Handler: jobs.NewPermissionReconcileHandler(syncer, metrics, jm, logger)},
			{Type: jobs.TaskSessionCleanup, Handler: jobs.NewSessionCleanupHandler(tokenManager, jm, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 * * * *", Task: jobs.NewSessionCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
