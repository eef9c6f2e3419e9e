package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jmoiron/sqlx"

	"homenet/internal/modules/weather/types"
)

//go:embed sql/insert-location.sql
var insertLocationSQL string

//go:embed sql/get-location-id.sql
var getLocationIDSQL string

//go:embed sql/get-locations.sql
var getLocationsSQL string

//go:embed sql/insert-instant-reading.sql
var insertInstantReadingSQL string

//go:embed sql/insert-hourly-reading.sql
var insertHourlyReadingSQL string

//go:embed sql/upsert-daily-forecast.sql
var upsertDailyForecastSQL string

//go:embed sql/get-recent-readings.sql
var getRecentReadingsSQL string

//go:embed sql/get-forecast.sql
var getForecastSQL string

// Writer is the write side available inside one ingestion transaction.
type Writer interface {
	// ResolveOrCreateLocation returns the id for name, inserting the row with
	// the given coordinates (0 when nil) if it does not exist yet. Existing
	// rows keep their coordinates.
	ResolveOrCreateLocation(ctx context.Context, name string, lat, lon *float64) (int64, error)
	// WriteRows appends instant and hourly rows and upserts daily rows.
	WriteRows(ctx context.Context, locationID int64, rows types.Rows) error
}

type WeatherRepository interface {
	// InTx runs fn in one transaction. Any error rolls back everything fn
	// wrote and comes back as a *types.StorageError.
	InTx(ctx context.Context, fn func(w Writer) error) error
	RecentReadings(ctx context.Context, location string, limit int) ([]types.Reading, error)
	Forecast(ctx context.Context, location string) ([]types.ForecastDay, error)
	Locations(ctx context.Context) ([]types.Location, error)
	Ping(ctx context.Context) error
}

type repositoryImpl struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) WeatherRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return &types.StorageError{Op: "begin", Err: err}
	}

	if err := fn(&txWriter{tx: tx}); err != nil {
		var serr *types.StorageError
		if !errors.As(err, &serr) {
			serr = &types.StorageError{Op: "ingest", Err: err}
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			serr = &types.StorageError{Op: serr.Op, Err: multierror.Append(serr.Err, fmt.Errorf("rollback: %w", rbErr))}
		}
		return serr
	}

	if err := tx.Commit(); err != nil {
		return &types.StorageError{Op: "commit", Err: err}
	}
	return nil
}

func (r *repositoryImpl) RecentReadings(ctx context.Context, location string, limit int) ([]types.Reading, error) {
	var rows []readingRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(getRecentReadingsSQL), location, limit); err != nil {
		return nil, &types.StorageError{Op: "recent readings", Err: err}
	}

	out := make([]types.Reading, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toReading()
		if err != nil {
			return nil, &types.StorageError{Op: "recent readings", Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *repositoryImpl) Forecast(ctx context.Context, location string) ([]types.ForecastDay, error) {
	out := []types.ForecastDay{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(getForecastSQL), location); err != nil {
		return nil, &types.StorageError{Op: "forecast", Err: err}
	}
	return out, nil
}

func (r *repositoryImpl) Locations(ctx context.Context) ([]types.Location, error) {
	out := []types.Location{}
	if err := r.db.SelectContext(ctx, &out, getLocationsSQL); err != nil {
		return nil, &types.StorageError{Op: "locations", Err: err}
	}
	return out, nil
}

func (r *repositoryImpl) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &types.StorageError{Op: "ping", Err: err}
	}
	return nil
}

type txWriter struct {
	tx *sqlx.Tx
}

func (w *txWriter) ResolveOrCreateLocation(ctx context.Context, name string, lat, lon *float64) (int64, error) {
	// Insert-if-absent then select keeps concurrent first sightings of the
	// same name down to one row.
	if _, err := w.tx.ExecContext(ctx, w.tx.Rebind(insertLocationSQL), name, orZero(lat), orZero(lon)); err != nil {
		return 0, &types.StorageError{Op: "resolve location", Err: err}
	}
	var id int64
	if err := w.tx.GetContext(ctx, &id, w.tx.Rebind(getLocationIDSQL), name); err != nil {
		return 0, &types.StorageError{Op: "resolve location", Err: err}
	}
	return id, nil
}

func (w *txWriter) WriteRows(ctx context.Context, locationID int64, rows types.Rows) error {
	if rows.Instant != nil {
		row := instantRow{
			LocationID:    locationID,
			Timestamp:     formatTimestamp(rows.Instant.Timestamp),
			Temperature:   rows.Instant.Temperature,
			WindSpeed:     rows.Instant.WindSpeed,
			WindDirection: rows.Instant.WindDirection,
			WeatherCode:   rows.Instant.WeatherCode,
		}
		if _, err := w.tx.NamedExecContext(ctx, insertInstantReadingSQL, row); err != nil {
			return &types.StorageError{Op: "insert instant reading", Err: err}
		}
	}

	if len(rows.Hourly) > 0 {
		if err := w.execEach(ctx, insertHourlyReadingSQL, "insert hourly reading", len(rows.Hourly), func(i int) any {
			return newHourlyRow(locationID, rows.Hourly[i])
		}); err != nil {
			return err
		}
	}

	if len(rows.Daily) > 0 {
		if err := w.execEach(ctx, upsertDailyForecastSQL, "upsert daily forecast", len(rows.Daily), func(i int) any {
			return dailyRow{LocationID: locationID, DailyForecast: rows.Daily[i]}
		}); err != nil {
			return err
		}
	}
	return nil
}

// execEach prepares query once and runs it for n rows.
func (w *txWriter) execEach(ctx context.Context, query, op string, n int, row func(i int) any) (err error) {
	stmt, err := w.tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return &types.StorageError{Op: op, Err: err}
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil && err == nil {
			err = &types.StorageError{Op: op, Err: cerr}
		}
	}()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)); err != nil {
			return &types.StorageError{Op: fmt.Sprintf("%s %d", op, i), Err: err}
		}
	}
	return nil
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(types.TimestampLayout)
}
