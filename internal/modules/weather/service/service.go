package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"homenet/internal/metrics"
	"homenet/internal/modules/weather/normalize"
	"homenet/internal/modules/weather/repository"
	"homenet/internal/modules/weather/types"
)

// HoursPerDay turns a days argument into the recent-readings row cap. The cap
// counts rows, it is not a calendar filter.
const HoursPerDay = 24

// MaxDays keeps days*HoursPerDay within int.
const MaxDays = math.MaxInt / HoursPerDay

type Service struct {
	repository repository.WeatherRepository
	validate   *validator.Validate
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(repository repository.WeatherRepository, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repository: repository,
		validate:   newValidator(),
		metrics:    m,
		logger:     logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Ingest validates and normalizes req, then writes it in one transaction:
// resolve the location, append instant and hourly rows, upsert daily rows.
// Errors are *types.ValidationError (nothing was opened) or
// *types.StorageError (everything was rolled back).
func (s *Service) Ingest(ctx context.Context, req types.IngestRequest) (types.IngestResult, error) {
	start := time.Now()
	req.Location = strings.TrimSpace(req.Location)
	logger := s.logger.With("ingest_id", uuid.NewString(), "location", req.Location)

	res, err := s.ingest(ctx, req)
	s.metrics.Ingest(resultLabel(err), time.Since(start))
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			logger.Warn("rejected payload", "error", err)
		} else {
			logger.Error("ingest failed", "error", err)
		}
		return types.IngestResult{}, err
	}

	s.metrics.RowsWritten("instant_readings", res.Instant)
	s.metrics.RowsWritten("hourly_readings", res.Hourly)
	s.metrics.RowsWritten("daily_forecasts", res.Daily)
	logger.Info("ingested payload",
		"location_id", res.LocationID,
		"instant", res.Instant,
		"hourly", res.Hourly,
		"daily", res.Daily,
		"duration", time.Since(start),
	)
	return res, nil
}

func (s *Service) ingest(ctx context.Context, req types.IngestRequest) (types.IngestResult, error) {
	if err := s.validateRequest(req); err != nil {
		return types.IngestResult{}, err
	}
	rows, err := normalize.Normalize(req.Payload)
	if err != nil {
		return types.IngestResult{}, err
	}

	var res types.IngestResult
	err = s.repository.InTx(ctx, func(w repository.Writer) error {
		id, err := w.ResolveOrCreateLocation(ctx, req.Location, req.Latitude, req.Longitude)
		if err != nil {
			return err
		}
		if err := w.WriteRows(ctx, id, rows); err != nil {
			return err
		}
		res = types.IngestResult{LocationID: id, Hourly: len(rows.Hourly), Daily: len(rows.Daily)}
		if rows.Instant != nil {
			res.Instant = 1
		}
		return nil
	})
	if err != nil {
		return types.IngestResult{}, err
	}
	return res, nil
}

func (s *Service) validateRequest(req types.IngestRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &types.ValidationError{Section: "request", Field: fe.Field(), Index: -1, Reason: describe(fe)}
	}
	return &types.ValidationError{Section: "request", Index: -1, Reason: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// RecentReadings returns up to days*24 instant and hourly rows for the
// location, newest first. Unknown locations yield an empty slice.
func (s *Service) RecentReadings(ctx context.Context, location string, days int) ([]types.Reading, error) {
	if days <= 0 {
		return nil, &types.ValidationError{Section: "query", Field: "days", Index: -1, Reason: "must be positive"}
	}
	if days > MaxDays {
		return nil, &types.ValidationError{Section: "query", Field: "days", Index: -1, Reason: fmt.Sprintf("must be at most %d", MaxDays)}
	}
	return s.repository.RecentReadings(ctx, location, days*HoursPerDay)
}

// Forecast returns every stored daily row for the location, earliest first.
func (s *Service) Forecast(ctx context.Context, location string) ([]types.ForecastDay, error) {
	return s.repository.Forecast(ctx, location)
}

func (s *Service) Locations(ctx context.Context) ([]types.Location, error) {
	return s.repository.Locations(ctx)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repository.Ping(ctx)
}

func resultLabel(err error) string {
	var verr *types.ValidationError
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.As(err, &verr):
		return metrics.ResultValidationError
	default:
		return metrics.ResultStorageError
	}
}
