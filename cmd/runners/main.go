package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"web/polaris/config"
	"web/polaris/events"
	"web/polaris/logging"
	"web/polaris/runner"
	"web/polaris/store"
)

func main() {
	cfg, err := config.Load("runner")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Parse command line flags
	port := flag.Int("port", cfg.Server.GRPCPort, "The gRPC server port")
	maxSessions := flag.Int("max-sessions", cfg.Runner.MaxSessions, "Maximum number of map sessions to keep in memory")
	flag.Parse()

	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := slog.Default()

	st, err := store.Open(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open dataset store", "error", err)
		os.Exit(1)
	}

	// Events reach the gateways through NATS only
	var sink events.Sink = events.LogSink{Logger: logger}
	if cfg.NATS.Enabled {
		conn, err := events.Connect(cfg.NATS.URL)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		publisher := events.NewNATSPublisher(conn)
		defer publisher.Close()
		sink = events.MultiSink{sink, publisher}
	} else {
		logger.Warn("nats disabled, session events are only logged")
	}

	// Create listener
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		logger.Error("failed to listen", "port", *port, "error", err)
		os.Exit(1)
	}

	opts := runner.OptionsFromConfig(cfg, logger)
	opts.MaxSessions = *maxSessions
	sessions := runner.NewRunner(st, sink, opts)
	defer sessions.Close()

	// Create gRPC server
	s := grpc.NewServer()
	runner.RegisterSessionServiceServer(s, sessions)

	// Enable reflection for debugging
	reflection.Register(s)

	// Handle shutdown gracefully
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down gRPC server")
		s.GracefulStop()
	}()

	// Start server
	logger.Info("starting gRPC server", "port", *port, "maxSessions", *maxSessions)
	if err := s.Serve(lis); err != nil {
		logger.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}
