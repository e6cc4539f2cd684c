package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/craftworkhq/settlement-backend/internal/cron"
	"github.com/craftworkhq/settlement-backend/internal/earnings"
	"github.com/craftworkhq/settlement-backend/internal/ledger"
	"github.com/craftworkhq/settlement-backend/internal/notifications"
	"github.com/craftworkhq/settlement-backend/internal/orders"
	"github.com/craftworkhq/settlement-backend/internal/payments"
	"github.com/craftworkhq/settlement-backend/internal/payouts"
	"github.com/craftworkhq/settlement-backend/internal/settlement"
	"github.com/craftworkhq/settlement-backend/pkg/config"
	"github.com/craftworkhq/settlement-backend/pkg/db"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
	"github.com/craftworkhq/settlement-backend/pkg/metrics"
	"github.com/craftworkhq/settlement-backend/pkg/migrate"
	"github.com/craftworkhq/settlement-backend/pkg/outbox"
	"github.com/craftworkhq/settlement-backend/pkg/redis"
	"github.com/craftworkhq/settlement-backend/pkg/square"
)

const lockKeyFormat = "cw:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)
	ordersRepo := orders.NewRepository(dbClient.DB())

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	earningsSvc, err := earnings.NewService(earnings.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create earnings service", err)
		os.Exit(1)
	}

	locker, err := settlement.NewRedisOrderLocker(redisClient, cfg.Settlement.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create order locker", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		Orders:            ordersRepo,
		Ledger:            ledgerSvc,
		Earnings:          earningsSvc,
		Payouts:           payouts.NewRepoResolver(payouts.NewRepository(dbClient.DB())),
		Processor:         payments.NewSquareProcessor(squareClient),
		TransactionRunner: dbClient,
		Outbox:            outboxSvc,
		Locker:            locker,
		Metrics:           metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
		Config:            cfg.Settlement,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	notifier, err := notifications.NewDispatcher(dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	orderTTLJob, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger:     logg,
		Reader:     ordersRepo,
		Settlement: settlementSvc,
		Notifier:   notifier,
		TTL:        cfg.Cron.PendingOrderTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order ttl job", err)
		os.Exit(1)
	}
	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(orderTTLJob, outboxRetentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
