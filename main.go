package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"web/polaris/api"
	"web/polaris/config"
	"web/polaris/events"
	"web/polaris/logging"
	"web/polaris/runner"
	"web/polaris/store"
)

// polaris runs the runner, its gRPC endpoint and the HTTP API in one
// process. Events go to an in-process bus, and to NATS when enabled.
func main() {
	cfg, err := config.Load("polaris")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := slog.Default()

	ctx := context.Background()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open dataset store", "error", err)
		os.Exit(1)
	}

	bus := events.NewBus()
	sinks := events.MultiSink{bus, events.LogSink{Logger: logger}}
	if cfg.NATS.Enabled {
		conn, err := events.Connect(cfg.NATS.URL)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		publisher := events.NewNATSPublisher(conn)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	sessions := runner.NewRunner(st, sinks, runner.OptionsFromConfig(cfg, logger))
	defer sessions.Close()

	// gRPC endpoint for remote gateways
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		logger.Error("failed to listen", "port", cfg.Server.GRPCPort, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	runner.RegisterSessionServiceServer(grpcServer, sessions)
	reflection.Register(grpcServer)
	go func() {
		logger.Info("starting gRPC server", "port", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      api.NewServer(sessions, bus, logger).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Create a channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
}
