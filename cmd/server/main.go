// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/bang/internal/cache"
	"github.com/jason-s-yu/bang/internal/config"
	"github.com/jason-s-yu/bang/internal/game"
	"github.com/jason-s-yu/bang/internal/handlers"
	"github.com/jason-s-yu/bang/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := game.Options{
		AllowDebugRoles: cfg.DebugRoles,
		Logger:          logger,
	}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("history queue: %v", err)
		}
		defer rdb.Close()
		opts.Recorder = cache.NewPublisher(rdb, cfg.Redis.Queue, logger)
		logger.Infof("Publishing session events to %s/%s", cfg.Redis.Addr, cfg.Redis.Queue)
	}
	if cfg.DebugRoles {
		logger.Warn("Debug role tables enabled; games may start with fewer than 4 players.")
	}

	session := game.NewGame(opts)
	tr := handlers.NewWSTransport(handlers.WSOptions{
		AdmissionKey: cfg.AdmissionKey,
		MaxPeers:     cfg.MaxPeers,
		WriteTimeout: cfg.WriteTimeout,
		OutboxSize:   cfg.OutboxSize,
	}, logger)
	gw := handlers.NewGateway(session, tr, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(tr.Handler(gw)))
	mux.Handle("/status", middleware.LogMiddleware(logger)(handlers.StatusHandler(gw, cfg.AdmissionKey)))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down..")

	// Peers hear SERVERQUIT before their sockets close.
	gw.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := tr.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Some peers did not close cleanly.")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP shutdown failed.")
	}
	logger.Info("Server stopped.")
}
