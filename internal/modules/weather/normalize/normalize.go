// Package normalize flattens an ingestion payload into fact rows.
package normalize

import (
	"fmt"
	"time"

	"homenet/internal/modules/weather/types"
)

// Accepted input layouts. Values without a zone are taken as UTC.
var timeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Normalize validates p and produces the rows to write. It never touches
// storage; a *types.ValidationError means the payload must be rejected
// whole.
func Normalize(p types.Payload) (types.Rows, error) {
	var rows types.Rows

	if p.Current != nil {
		inst, err := currentRow(p.Current)
		if err != nil {
			return types.Rows{}, err
		}
		rows.Instant = &inst
	}
	if p.Hourly != nil {
		hourly, err := hourlyRows(p.Hourly)
		if err != nil {
			return types.Rows{}, err
		}
		rows.Hourly = hourly
	}
	if p.Daily != nil {
		daily, err := dailyRows(p.Daily)
		if err != nil {
			return types.Rows{}, err
		}
		rows.Daily = daily
	}
	return rows, nil
}

func currentRow(c *types.CurrentSection) (types.InstantReading, error) {
	missing := func(field string) error {
		return &types.ValidationError{Section: "current", Field: field, Index: -1, Reason: "required"}
	}
	switch {
	case c.Time == nil:
		return types.InstantReading{}, missing("time")
	case c.Temperature == nil:
		return types.InstantReading{}, missing("temperature")
	case c.WindSpeed == nil:
		return types.InstantReading{}, missing("windspeed")
	case c.WindDirection == nil:
		return types.InstantReading{}, missing("winddirection")
	case c.WeatherCode == nil:
		return types.InstantReading{}, missing("weathercode")
	}

	ts, err := ParseTimestamp(*c.Time)
	if err != nil {
		return types.InstantReading{}, &types.ValidationError{Section: "current", Field: "time", Index: -1, Reason: err.Error()}
	}
	return types.InstantReading{
		Timestamp:     ts,
		Temperature:   *c.Temperature,
		WindSpeed:     *c.WindSpeed,
		WindDirection: *c.WindDirection,
		WeatherCode:   *c.WeatherCode,
	}, nil
}

func hourlyRows(h *types.HourlySection) ([]types.HourlyReading, error) {
	if h.Time == nil {
		return nil, &types.ValidationError{Section: "hourly", Field: "time", Index: -1, Reason: "required"}
	}

	out := make([]types.HourlyReading, 0, len(h.Time))
	for i, raw := range h.Time {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return nil, &types.ValidationError{Section: "hourly", Field: "time", Index: i, Reason: err.Error()}
		}
		out = append(out, types.HourlyReading{
			Timestamp:                ts,
			Temperature:              h.Temperature.At(i),
			ApparentTemperature:      h.ApparentTemperature.At(i),
			Humidity:                 h.Humidity.At(i),
			Precipitation:            h.Precipitation.At(i),
			Rain:                     h.Rain.At(i),
			Snowfall:                 h.Snowfall.At(i),
			PrecipitationProbability: h.PrecipitationProbability.At(i),
			WindSpeed:                h.WindSpeed.At(i),
			WindGusts:                h.WindGusts.At(i),
			WindDirection:            h.WindDirection.At(i),
			CloudCover:               h.CloudCover.At(i),
			Visibility:               h.Visibility.At(i),
			UVIndex:                  h.UVIndex.At(i),
		})
	}
	return out, nil
}

type dailyMeasure struct {
	field  string
	series types.Series
	dst    func(*types.DailyForecast) **float64
}

func dailyRows(d *types.DailySection) ([]types.DailyForecast, error) {
	if d.Time == nil {
		return nil, &types.ValidationError{Section: "daily", Field: "time", Index: -1, Reason: "required"}
	}

	measures := []dailyMeasure{
		{"temperature_2m_max", d.TempMax, func(f *types.DailyForecast) **float64 { return &f.TempMax }},
		{"temperature_2m_min", d.TempMin, func(f *types.DailyForecast) **float64 { return &f.TempMin }},
		{"precipitation_sum", d.PrecipitationSum, func(f *types.DailyForecast) **float64 { return &f.PrecipitationSum }},
		{"rain_sum", d.RainSum, func(f *types.DailyForecast) **float64 { return &f.RainSum }},
		{"snowfall_sum", d.SnowfallSum, func(f *types.DailyForecast) **float64 { return &f.SnowfallSum }},
		{"precipitation_probability_max", d.PrecipitationProbabilityMax, func(f *types.DailyForecast) **float64 { return &f.PrecipitationProbabilityMax }},
		{"wind_speed_10m_max", d.WindSpeedMax, func(f *types.DailyForecast) **float64 { return &f.WindSpeedMax }},
		{"wind_gusts_10m_max", d.WindGustsMax, func(f *types.DailyForecast) **float64 { return &f.WindGustsMax }},
		{"uv_index_max", d.UVIndexMax, func(f *types.DailyForecast) **float64 { return &f.UVIndexMax }},
	}

	// Check shape up front so the error names the measure, not a row.
	n := len(d.Time)
	for _, m := range measures {
		if !m.series.Present() {
			return nil, &types.ValidationError{Section: "daily", Field: m.field, Index: -1, Reason: "required"}
		}
		if m.series.Len() < n {
			return nil, &types.ValidationError{
				Section: "daily",
				Field:   m.field,
				Index:   m.series.Len(),
				Reason:  fmt.Sprintf("has %d values, time has %d", m.series.Len(), n),
			}
		}
	}

	out := make([]types.DailyForecast, 0, n)
	for i, raw := range d.Time {
		date, err := ParseDate(raw)
		if err != nil {
			return nil, &types.ValidationError{Section: "daily", Field: "time", Index: i, Reason: err.Error()}
		}
		row := types.DailyForecast{Date: date.Format(types.DateLayout)}
		for _, m := range measures {
			v, _ := m.series.Require(i)
			*m.dst(&row) = v
		}
		out = append(out, row)
	}
	return out, nil
}

// ParseTimestamp reads an ISO-8601 timestamp and returns it in UTC, truncated
// to the second.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseDate accepts a bare calendar date, or a timestamp whose date part is
// used.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(types.DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := ParseTimestamp(s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
