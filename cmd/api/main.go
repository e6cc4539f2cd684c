package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/craftworkhq/settlement-backend/api/routes"
	"github.com/craftworkhq/settlement-backend/internal/earnings"
	"github.com/craftworkhq/settlement-backend/internal/ledger"
	"github.com/craftworkhq/settlement-backend/internal/orders"
	"github.com/craftworkhq/settlement-backend/internal/payments"
	"github.com/craftworkhq/settlement-backend/internal/payouts"
	"github.com/craftworkhq/settlement-backend/internal/pricing"
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

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square", err)
		os.Exit(1)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	calculator := pricing.NewCalculator(cfg.Pricing, nil, logg)

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
	payoutsRepo := payouts.NewRepository(dbClient.DB())

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:              ordersRepo,
		Ledger:            ledgerSvc,
		Pricing:           calculator,
		TransactionRunner: dbClient,
		Outbox:            outboxSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
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
		Payouts:           payouts.NewRepoResolver(payoutsRepo),
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			Redis:      redisClient,
			Pricing:    calculator,
			Orders:     ordersSvc,
			Settlement: settlementSvc,
			Earnings:   earningsSvc,
			Payouts:    payoutsRepo,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
