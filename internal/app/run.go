package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"homenet/internal/config"
	"homenet/internal/db"
	"homenet/internal/db/migrate"
	"homenet/internal/httpapi"
	"homenet/internal/metrics"
	"homenet/internal/modules/weather"
	"homenet/internal/mqtt"
)

// Run starts the server and blocks until ctx is cancelled or the HTTP
// listener fails.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.DBDriver,
		"sqlitePath", cfg.SQLitePath,
		"dbMaxOpenConns", cfg.DBMaxOpenConns,
		"dbMaxIdleConns", cfg.DBMaxIdleConns,
		"dbConnMaxLifetime", cfg.DBConnMaxLifetime,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"collectLocations", len(cfg.CollectLocations),
		"collectionInterval", cfg.CollectionInterval,
	)

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}
	logger.Info("database ready", "driver", dbConn.DriverName())

	m := metrics.New()

	var (
		subscriber *mqtt.Subscriber
		handlerSub mqtt.MessageSubscriber
	)
	if cfg.MQTTEnabled {
		subscriber = mqtt.NewSubscriber(mqtt.Options{
			Broker:   cfg.MQTTBroker,
			Port:     cfg.MQTTPort,
			ClientID: cfg.MQTTClientID,
		}, cfg.MQTTTopic, logger)
		handlerSub = subscriber
	}

	mux := httpapi.NewMux(httpapi.PingFunc(dbConn.PingContext), m.Handler())
	// The handler has to be set before Connect: the broker may deliver
	// queued messages right after CONNACK.
	feature := weather.RegisterFeature(mux, dbConn, handlerSub, cfg, m, logger)

	if subscriber != nil {
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			// HTTP and /healthz keep working without a broker; the client keeps
			// retrying and subscribes once it connects.
			logger.Warn("mqtt not connected yet (retrying in background)", "error", err)
		}
	}

	if err := feature.Collector.Start(); err != nil {
		return err
	}

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		feature.Collector.Stop()
		if subscriber != nil {
			subscriber.Disconnect()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("collector stopping")
	feature.Collector.Stop()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
