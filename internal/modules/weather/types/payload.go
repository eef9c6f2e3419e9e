package types

import (
	"bytes"
	"encoding/json"
)

// Payload is a bag of three optional sections, shaped like an Open-Meteo
// forecast response.
type Payload struct {
	Current *CurrentSection `json:"current_weather,omitempty"`
	Hourly  *HourlySection  `json:"hourly,omitempty"`
	Daily   *DailySection   `json:"daily,omitempty"`
}

// UnmarshalJSON accepts "current" as an alias of "current_weather".
func (p *Payload) UnmarshalJSON(b []byte) error {
	var raw struct {
		CurrentWeather *CurrentSection `json:"current_weather"`
		Current        *CurrentSection `json:"current"`
		Hourly         *HourlySection  `json:"hourly"`
		Daily          *DailySection   `json:"daily"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Current = raw.CurrentWeather
	if p.Current == nil {
		p.Current = raw.Current
	}
	p.Hourly = raw.Hourly
	p.Daily = raw.Daily
	return nil
}

func (p Payload) Empty() bool {
	return p.Current == nil && p.Hourly == nil && p.Daily == nil
}

// CurrentSection fields are all required once the section is present.
type CurrentSection struct {
	Time          *string  `json:"time"`
	Temperature   *float64 `json:"temperature"`
	WindSpeed     *float64 `json:"windspeed"`
	WindDirection *float64 `json:"winddirection"`
	WeatherCode   *int     `json:"weathercode"`
}

// UnmarshalJSON reads both the legacy current_weather names (windspeed) and
// the names of the newer "current" block (wind_speed_10m). Legacy names win
// when both are set.
func (c *CurrentSection) UnmarshalJSON(b []byte) error {
	var raw struct {
		Time          *string  `json:"time"`
		Temperature   *float64 `json:"temperature"`
		WindSpeed     *float64 `json:"windspeed"`
		WindDirection *float64 `json:"winddirection"`
		WeatherCode   *int     `json:"weathercode"`

		Temperature2m    *float64 `json:"temperature_2m"`
		WindSpeed10m     *float64 `json:"wind_speed_10m"`
		WindDirection10m *float64 `json:"wind_direction_10m"`
		WeatherCodeNew   *int     `json:"weather_code"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = CurrentSection{
		Time:          raw.Time,
		Temperature:   firstOf(raw.Temperature, raw.Temperature2m),
		WindSpeed:     firstOf(raw.WindSpeed, raw.WindSpeed10m),
		WindDirection: firstOf(raw.WindDirection, raw.WindDirection10m),
		WeatherCode:   firstOf(raw.WeatherCode, raw.WeatherCodeNew),
	}
	return nil
}

func firstOf[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}

// HourlySection is a set of parallel arrays indexed by Time. Measures are
// optional and may be shorter than Time.
type HourlySection struct {
	Time                     []string `json:"time"`
	Temperature              Series   `json:"temperature_2m"`
	ApparentTemperature      Series   `json:"apparent_temperature"`
	Humidity                 Series   `json:"relative_humidity_2m"`
	Precipitation            Series   `json:"precipitation"`
	Rain                     Series   `json:"rain"`
	Snowfall                 Series   `json:"snowfall"`
	PrecipitationProbability Series   `json:"precipitation_probability"`
	WindSpeed                Series   `json:"wind_speed_10m"`
	WindGusts                Series   `json:"wind_gusts_10m"`
	WindDirection            Series   `json:"wind_direction_10m"`
	CloudCover               Series   `json:"cloud_cover"`
	Visibility               Series   `json:"visibility"`
	UVIndex                  Series   `json:"uv_index"`
}

// DailySection is a set of parallel arrays indexed by Time. Every measure is
// required and must be at least as long as Time.
type DailySection struct {
	Time                        []string `json:"time"`
	TempMax                     Series   `json:"temperature_2m_max"`
	TempMin                     Series   `json:"temperature_2m_min"`
	PrecipitationSum            Series   `json:"precipitation_sum"`
	RainSum                     Series   `json:"rain_sum"`
	SnowfallSum                 Series   `json:"snowfall_sum"`
	PrecipitationProbabilityMax Series   `json:"precipitation_probability_max"`
	WindSpeedMax                Series   `json:"wind_speed_10m_max"`
	WindGustsMax                Series   `json:"wind_gusts_10m_max"`
	UVIndexMax                  Series   `json:"uv_index_max"`
}

// Series is an array-valued measure that is either absent or present with a
// length. Elements may be null.
type Series struct {
	values  []*float64
	present bool
}

// SeriesOf builds a present series from plain values.
func SeriesOf(vals ...float64) Series {
	out := make([]*float64, len(vals))
	for i := range vals {
		v := vals[i]
		out[i] = &v
	}
	return Series{values: out, present: true}
}

// SeriesWithNulls builds a present series whose nil elements are nulls.
func SeriesWithNulls(vals []*float64) Series {
	if vals == nil {
		vals = []*float64{}
	}
	return Series{values: vals, present: true}
}

func (s Series) Present() bool { return s.present }

func (s Series) Len() int { return len(s.values) }

// At is the lenient accessor: nil when the series is absent, too short, or
// holds a null at i.
func (s Series) At(i int) *float64 {
	if !s.present || i < 0 || i >= len(s.values) {
		return nil
	}
	return s.values[i]
}

// Require is the strict accessor: ok is false when the series is absent or
// too short. A null element is returned as nil with ok true.
func (s Series) Require(i int) (v *float64, ok bool) {
	if !s.present || i < 0 || i >= len(s.values) {
		return nil, false
	}
	return s.values[i], true
}

func (s *Series) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = Series{}
		return nil
	}
	var vals []*float64
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	*s = SeriesWithNulls(vals)
	return nil
}

func (s Series) MarshalJSON() ([]byte, error) {
	if !s.present {
		return []byte("null"), nil
	}
	return json.Marshal(s.values)
}
