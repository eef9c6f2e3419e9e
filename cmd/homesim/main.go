// Command homesim publishes simulated indoor telemetry for one home.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"homenet/internal/config"
	"homenet/internal/logging"
	"homenet/internal/mqtt"
	"homenet/internal/simulator"
)

const appName = "homesim"

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadSimFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		AppName: appName,
		Version: version,
		AppEnv:  cfg.AppEnv,
		Level:   cfg.LogLevel,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func run(ctx context.Context, cfg config.SimConfig, logger *slog.Logger) error {
	var publisher simulator.Publisher
	if cfg.MQTTEnabled {
		p := mqtt.NewPublisher(mqtt.Options{
			Broker:   cfg.MQTTBroker,
			Port:     cfg.MQTTPort,
			ClientID: cfg.MQTTClientID,
		}, logger)

		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.Connect(connectCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		defer p.Disconnect()
		publisher = p
	}

	runner := simulator.NewRunner(simulator.New(cfg.Windows), publisher, simulator.RunnerConfig{
		HomeID:   cfg.HomeID,
		Topic:    cfg.MQTTTopic,
		Interval: cfg.Interval,
		Steps:    cfg.Steps,
	}, logger)
	return runner.Run(ctx)
}
