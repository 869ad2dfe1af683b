package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tuxedoctl/internal/config"
	"tuxedoctl/internal/control"
	"tuxedoctl/internal/logger"
	"tuxedoctl/internal/pid"
	"tuxedoctl/internal/server"
	"tuxedoctl/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}

	logger.Info().Msgf("Starting %s v%s", control.ServiceID, control.Version)

	if err := pid.Write(); err != nil {
		logger.Error().Err(err).Msg("Failed to write PID file")
		return 1
	}
	defer pid.Remove()

	collector, err := telemetry.NewService(telemetry.Config{
		Enabled: cfg.Telemetry,
		DBPath:  cfg.Database,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize telemetry")
		return 1
	}
	defer collector.Close()

	manager := control.New(control.WithCollector(collector))
	// Fans must be back under firmware control on every exit path.
	defer manager.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := server.Serve(ctx, cfg.Socket, server.Handler(manager)); err != nil {
		logger.Error().Err(err).Msg("Server failed")
		return 1
	}

	logger.Info().Msg("Exiting...")

	return 0
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
