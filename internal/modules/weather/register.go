package weather

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"homenet/internal/config"
	"homenet/internal/metrics"
	"homenet/internal/modules/weather/collector"
	"homenet/internal/modules/weather/controller"
	"homenet/internal/modules/weather/repository"
	"homenet/internal/modules/weather/service"
	"homenet/internal/mqtt"
)

// Feature is the wired weather module.
type Feature struct {
	Service   *service.Service
	Collector *collector.Collector
}

// RegisterFeature mounts the weather routes on mux and, when subscriber is
// non-nil, attaches the ingestion handler to it. The collector is built but
// not started.
func RegisterFeature(mux *http.ServeMux, db *sqlx.DB, subscriber mqtt.MessageSubscriber, cfg config.Config, m *metrics.Metrics, logger *slog.Logger) *Feature {
	weatherRepository := repository.NewRepository(db)
	weatherService := service.NewService(weatherRepository, m, logger)

	weatherController := controller.NewWeatherController(weatherService)
	weatherController.RegisterRoutes(mux)

	if subscriber != nil {
		weatherService.Register(subscriber)
	}

	client := collector.NewOpenMeteoClient(cfg.OpenMeteoURL, cfg.OpenMeteoRPS, nil)
	return &Feature{
		Service:   weatherService,
		Collector: collector.New(client, weatherService, cfg.CollectLocations, cfg.CollectionInterval, m, logger),
	}
}
