package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/partnerly/dispatch-backend/api/routes"
	"github.com/partnerly/dispatch-backend/internal/ledger"
	"github.com/partnerly/dispatch-backend/internal/requests"
	"github.com/partnerly/dispatch-backend/internal/settings"
	"github.com/partnerly/dispatch-backend/internal/statuslog"
	"github.com/partnerly/dispatch-backend/internal/sweep"
	"github.com/partnerly/dispatch-backend/pkg/config"
	"github.com/partnerly/dispatch-backend/pkg/db"
	"github.com/partnerly/dispatch-backend/pkg/logger"
	"github.com/partnerly/dispatch-backend/pkg/migrate"
	"github.com/partnerly/dispatch-backend/pkg/outbox"
	"github.com/partnerly/dispatch-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	// The same job the worker runs on its cycle backs the on-demand
	// internal sweep endpoint.
	slaJob, err := sweep.NewSLAExpiryJob(sweep.SLAExpiryJobParams{
		Logger:   logg,
		Reader:   requestsRepo,
		Requests: requestsSvc,
		Settings: settingsSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sla expiry job", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, requestsSvc, slaJob),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
