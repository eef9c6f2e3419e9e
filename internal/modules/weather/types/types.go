package types

import (
	"encoding/json"
	"time"
)

// Location is the dimension every fact row hangs off.
type Location struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// InstantReading is the "current weather" snapshot of one ingestion.
type InstantReading struct {
	Timestamp     time.Time
	Temperature   float64
	WindSpeed     float64
	WindDirection float64
	WeatherCode   int
}

// HourlyReading is one element of an hourly series. Any measure may be nil.
type HourlyReading struct {
	Timestamp                time.Time
	Temperature              *float64
	ApparentTemperature      *float64
	Humidity                 *float64
	Precipitation            *float64
	Rain                     *float64
	Snowfall                 *float64
	PrecipitationProbability *float64
	WindSpeed                *float64
	WindGusts                *float64
	WindDirection            *float64
	CloudCover               *float64
	Visibility               *float64
	UVIndex                  *float64
}

// DailyForecast is one calendar day of a forecast. Date is YYYY-MM-DD.
type DailyForecast struct {
	Date                        string   `json:"date" db:"date"`
	TempMax                     *float64 `json:"temp_max" db:"temp_max"`
	TempMin                     *float64 `json:"temp_min" db:"temp_min"`
	PrecipitationSum            *float64 `json:"precipitation_sum" db:"precipitation_sum"`
	RainSum                     *float64 `json:"rain_sum" db:"rain_sum"`
	SnowfallSum                 *float64 `json:"snowfall_sum" db:"snowfall_sum"`
	PrecipitationProbabilityMax *float64 `json:"precipitation_probability_max" db:"precipitation_probability_max"`
	WindSpeedMax                *float64 `json:"wind_speed_max" db:"wind_speed_max"`
	WindGustsMax                *float64 `json:"wind_gusts_max" db:"wind_gusts_max"`
	UVIndexMax                  *float64 `json:"uv_index_max" db:"uv_index_max"`
}

// Rows is the normalized form of one Payload.
type Rows struct {
	Instant *InstantReading
	Hourly  []HourlyReading
	Daily   []DailyForecast
}

func (r Rows) Len() int {
	n := len(r.Hourly) + len(r.Daily)
	if r.Instant != nil {
		n++
	}
	return n
}

const (
	KindCurrent = "current"
	KindHourly  = "hourly"
)

// Reading is a row of the recent-history query. Instant readings only fill
// the columns they carry.
type Reading struct {
	Location                 string    `json:"location"`
	Kind                     string    `json:"kind"`
	Timestamp                time.Time `json:"timestamp"`
	Temperature              *float64  `json:"temperature"`
	ApparentTemperature      *float64  `json:"apparent_temperature"`
	Humidity                 *float64  `json:"humidity"`
	Precipitation            *float64  `json:"precipitation"`
	Rain                     *float64  `json:"rain"`
	Snowfall                 *float64  `json:"snowfall"`
	PrecipitationProbability *float64  `json:"precipitation_probability"`
	WindSpeed                *float64  `json:"wind_speed"`
	WindGusts                *float64  `json:"wind_gusts"`
	WindDirection            *float64  `json:"wind_direction"`
	CloudCover               *float64  `json:"cloud_cover"`
	Visibility               *float64  `json:"visibility"`
	UVIndex                  *float64  `json:"uv_index"`
	WeatherCode              *int      `json:"weather_code"`
}

// ForecastDay is a row of the forecast query.
type ForecastDay struct {
	Location string `json:"location" db:"location"`
	DailyForecast
}

// IngestRequest is what every caller hands to the ingestion service.
type IngestRequest struct {
	Location  string   `json:"location" validate:"required,max=200"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Payload   Payload  `json:"-"`
}

// UnmarshalJSON reads the location fields and the payload sections from the
// same flat object.
func (r *IngestRequest) UnmarshalJSON(b []byte) error {
	var head struct {
		Location  string   `json:"location"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = IngestRequest{Location: head.Location, Latitude: head.Latitude, Longitude: head.Longitude, Payload: p}
	return nil
}

func (r IngestRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Location  string          `json:"location"`
		Latitude  *float64        `json:"latitude,omitempty"`
		Longitude *float64        `json:"longitude,omitempty"`
		Current   *CurrentSection `json:"current_weather,omitempty"`
		Hourly    *HourlySection  `json:"hourly,omitempty"`
		Daily     *DailySection   `json:"daily,omitempty"`
	}{r.Location, r.Latitude, r.Longitude, r.Payload.Current, r.Payload.Hourly, r.Payload.Daily})
}

type IngestResult struct {
	LocationID int64 `json:"location_id"`
	Instant    int   `json:"instant"`
	Hourly     int   `json:"hourly"`
	Daily      int   `json:"daily"`
}

// TimestampLayout is how timestamps are stored: UTC, second precision, so
// lexical order is chronological order.
const TimestampLayout = "2006-01-02T15:04:05Z"

const DateLayout = "2006-01-02"
