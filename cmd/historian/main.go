// cmd/historian is an asynchronous historian service that pops session event
// records from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/bang/internal/cache"
	"github.com/jason-s-yu/bang/internal/config"
	"github.com/jason-s-yu/bang/internal/database"
	"github.com/jason-s-yu/bang/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	if cfg.Redis.Addr == "" || cfg.Historian.DatabaseURL == "" {
		logger.Fatal("REDIS_ADDR and DATABASE_URL are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Historian.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("database: %v", err)
	}

	rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("history queue: %v", err)
	}
	defer rdb.Close()

	svc := historian.NewService(rdb, database.NewSessionEventStore(pool), historian.Options{
		Queue:         cfg.Redis.Queue,
		BatchSize:     cfg.Historian.BatchSize,
		FlushInterval: cfg.Historian.FlushInterval,
	}, logger)

	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Error("Historian stopped with error.")
	}
	logger.Infof("Historian shutdown complete. %d events persisted.", svc.Flushed())
}
