// Package collector periodically pulls Open-Meteo forecasts for the
// configured locations and feeds them through ingestion.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hashicorp/go-multierror"

	"homenet/internal/config"
	"homenet/internal/metrics"
	"homenet/internal/modules/weather/types"
)

type Fetcher interface {
	Fetch(ctx context.Context, loc config.CollectLocation) (types.Payload, error)
}

type Ingester interface {
	Ingest(ctx context.Context, req types.IngestRequest) (types.IngestResult, error)
}

type Collector struct {
	fetcher   Fetcher
	ingester  Ingester
	locations []config.CollectLocation
	interval  time.Duration
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	scheduler *gocron.Scheduler
}

func New(fetcher Fetcher, ingester Ingester, locations []config.CollectLocation, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		fetcher:   fetcher,
		ingester:  ingester,
		locations: locations,
		interval:  interval,
		timeout:   30 * time.Second,
		metrics:   m,
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start runs one collection immediately and then every interval. Runs never
// overlap.
func (c *Collector) Start() error {
	if len(c.locations) == 0 {
		c.logger.Info("collector: no locations configured; nothing to schedule")
		return nil
	}
	if c.interval <= 0 {
		return fmt.Errorf("collector: interval must be positive, got %s", c.interval)
	}

	c.scheduler.SingletonModeAll()
	_, err := c.scheduler.Every(c.interval).Do(func() {
		if err := c.CollectOnce(context.Background()); err != nil {
			c.logger.Warn("collector: run finished with errors", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule collector: %w", err)
	}

	c.scheduler.StartAsync()
	c.logger.Info("collector started", "locations", len(c.locations), "interval", c.interval)
	return nil
}

// Stop cancels future runs.
func (c *Collector) Stop() {
	c.scheduler.Stop()
}

// CollectOnce fetches and ingests every location. A failing location does
// not stop the others; all failures are returned together.
func (c *Collector) CollectOnce(ctx context.Context) error {
	c.logger.Debug("collector: run started", "locations", len(c.locations))

	var result *multierror.Error
	for _, loc := range c.locations {
		if err := c.collect(ctx, loc); err != nil {
			c.metrics.Collect(metrics.ResultError)
			result = multierror.Append(result, fmt.Errorf("%s: %w", loc.Name, err))
			continue
		}
		c.metrics.Collect(metrics.ResultOK)
	}
	return result.ErrorOrNil()
}

func (c *Collector) collect(ctx context.Context, loc config.CollectLocation) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := c.fetcher.Fetch(ctx, loc)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	lat, lon := loc.Latitude, loc.Longitude
	res, err := c.ingester.Ingest(ctx, types.IngestRequest{
		Location:  loc.Name,
		Latitude:  &lat,
		Longitude: &lon,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	c.logger.Info("collector: stored forecast",
		"location", loc.Name,
		"hourly", res.Hourly,
		"daily", res.Daily,
	)
	return nil
}
