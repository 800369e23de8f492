package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/partnerly/dispatch-backend/internal/ledger"
	"github.com/partnerly/dispatch-backend/internal/requests"
	"github.com/partnerly/dispatch-backend/internal/settings"
	"github.com/partnerly/dispatch-backend/internal/statuslog"
	"github.com/partnerly/dispatch-backend/internal/sweep"
	"github.com/partnerly/dispatch-backend/pkg/config"
	"github.com/partnerly/dispatch-backend/pkg/db"
	"github.com/partnerly/dispatch-backend/pkg/logger"
	"github.com/partnerly/dispatch-backend/pkg/metrics"
	"github.com/partnerly/dispatch-backend/pkg/migrate"
	"github.com/partnerly/dispatch-backend/pkg/outbox"
	"github.com/partnerly/dispatch-backend/pkg/redis"
)

const lockKeyFormat = "dispatch:sla-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "sla-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sla-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sla-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	settingsSvc, err := settings.NewService(settings.NewRepository(dbClient.DB()), redisClient, cfg.SLA, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	requestsRepo := requests.NewRepository(dbClient.DB())
	requestsSvc, err := requests.NewService(requests.ServiceParams{
		Repo:      requestsRepo,
		Ledger:    ledger.NewRepository(dbClient.DB()),
		StatusLog: statuslog.NewRepository(dbClient.DB()),
		Settings:  settingsSvc,
		TxRunner:  dbClient,
		Outbox:    outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	expiryJob, err := sweep.NewSLAExpiryJob(sweep.SLAExpiryJobParams{
		Logger:   logg,
		Reader:   requestsRepo,
		Requests: requestsSvc,
		Settings: settingsSvc,
		Metrics:  metrics.NewSLAMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sla expiry job", err)
		os.Exit(1)
	}

	lock, err := sweep.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := sweep.NewService(sweep.ServiceParams{
		Logger:   logg,
		Registry: sweep.NewRegistry(expiryJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.SLA.SweepInterval,
		Timeout:  cfg.SLA.SweepTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sla worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sla worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sla worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
