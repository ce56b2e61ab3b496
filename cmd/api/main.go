package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"web/polaris/api"
	"web/polaris/config"
	"web/polaris/events"
	"web/polaris/logging"
	"web/polaris/runner"
)

// The gateway serves the HTTP API for a remote runner and relays session
// events from NATS to WebSocket clients.
func main() {
	cfg, err := config.Load("api")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := slog.Default()

	// Connect to the runner
	conn, err := runner.Dial(cfg.Server.RunnerAddr)
	if err != nil {
		logger.Error("failed to connect to runner", "addr", cfg.Server.RunnerAddr, "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	client := runner.NewClient(conn)

	var subscriber events.Subscriber
	if cfg.NATS.Enabled {
		nc, err := events.Connect(cfg.NATS.URL)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nc.Drain()
		subscriber = events.NewNATSSubscriber(nc, logger)
	} else {
		logger.Warn("nats disabled, the events endpoint is unavailable")
	}

	ctx := context.Background()
	if resp, err := client.ListDatasets(ctx, &runner.ListDatasetsRequest{}); err == nil {
		logger.Info("connected to runner", "addr", cfg.Server.RunnerAddr, "datasets", len(resp.Datasets))
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      api.NewServer(client, subscriber, logger).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Create a channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
