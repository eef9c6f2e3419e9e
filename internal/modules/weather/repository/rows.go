package repository

import (
	"fmt"
	"time"

	"homenet/internal/modules/weather/types"
)

type instantRow struct {
	LocationID    int64   `db:"location_id"`
	Timestamp     string  `db:"ts"`
	Temperature   float64 `db:"temperature"`
	WindSpeed     float64 `db:"wind_speed"`
	WindDirection float64 `db:"wind_direction"`
	WeatherCode   int     `db:"weather_code"`
}

type hourlyRow struct {
	LocationID               int64    `db:"location_id"`
	Timestamp                string   `db:"ts"`
	Temperature              *float64 `db:"temperature"`
	ApparentTemperature      *float64 `db:"apparent_temperature"`
	Humidity                 *float64 `db:"humidity"`
	Precipitation            *float64 `db:"precipitation"`
	Rain                     *float64 `db:"rain"`
	Snowfall                 *float64 `db:"snowfall"`
	PrecipitationProbability *float64 `db:"precipitation_probability"`
	WindSpeed                *float64 `db:"wind_speed"`
	WindGusts                *float64 `db:"wind_gusts"`
	WindDirection            *float64 `db:"wind_direction"`
	CloudCover               *float64 `db:"cloud_cover"`
	Visibility               *float64 `db:"visibility"`
	UVIndex                  *float64 `db:"uv_index"`
}

func newHourlyRow(locationID int64, h types.HourlyReading) hourlyRow {
	return hourlyRow{
		LocationID:               locationID,
		Timestamp:                formatTimestamp(h.Timestamp),
		Temperature:              h.Temperature,
		ApparentTemperature:      h.ApparentTemperature,
		Humidity:                 h.Humidity,
		Precipitation:            h.Precipitation,
		Rain:                     h.Rain,
		Snowfall:                 h.Snowfall,
		PrecipitationProbability: h.PrecipitationProbability,
		WindSpeed:                h.WindSpeed,
		WindGusts:                h.WindGusts,
		WindDirection:            h.WindDirection,
		CloudCover:               h.CloudCover,
		Visibility:               h.Visibility,
		UVIndex:                  h.UVIndex,
	}
}

type dailyRow struct {
	LocationID int64 `db:"location_id"`
	types.DailyForecast
}

// readingRow mirrors get-recent-readings.sql.
type readingRow struct {
	Location                 string   `db:"location"`
	Kind                     string   `db:"kind"`
	Timestamp                string   `db:"ts"`
	Temperature              *float64 `db:"temperature"`
	ApparentTemperature      *float64 `db:"apparent_temperature"`
	Humidity                 *float64 `db:"humidity"`
	Precipitation            *float64 `db:"precipitation"`
	Rain                     *float64 `db:"rain"`
	Snowfall                 *float64 `db:"snowfall"`
	PrecipitationProbability *float64 `db:"precipitation_probability"`
	WindSpeed                *float64 `db:"wind_speed"`
	WindGusts                *float64 `db:"wind_gusts"`
	WindDirection            *float64 `db:"wind_direction"`
	CloudCover               *float64 `db:"cloud_cover"`
	Visibility               *float64 `db:"visibility"`
	UVIndex                  *float64 `db:"uv_index"`
	WeatherCode              *int64   `db:"weather_code"`
}

func (r readingRow) toReading() (types.Reading, error) {
	ts, err := time.Parse(types.TimestampLayout, r.Timestamp)
	if err != nil {
		return types.Reading{}, fmt.Errorf("parse timestamp %q: %w", r.Timestamp, err)
	}
	rec := types.Reading{
		Location:                 r.Location,
		Kind:                     r.Kind,
		Timestamp:                ts,
		Temperature:              r.Temperature,
		ApparentTemperature:      r.ApparentTemperature,
		Humidity:                 r.Humidity,
		Precipitation:            r.Precipitation,
		Rain:                     r.Rain,
		Snowfall:                 r.Snowfall,
		PrecipitationProbability: r.PrecipitationProbability,
		WindSpeed:                r.WindSpeed,
		WindGusts:                r.WindGusts,
		WindDirection:            r.WindDirection,
		CloudCover:               r.CloudCover,
		Visibility:               r.Visibility,
		UVIndex:                  r.UVIndex,
	}
	if r.WeatherCode != nil {
		code := int(*r.WeatherCode)
		rec.WeatherCode = &code
	}
	return rec, nil
}
