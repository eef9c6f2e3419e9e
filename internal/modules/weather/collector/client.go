package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"homenet/internal/config"
	"homenet/internal/modules/weather/types"
)

var hourlyVariables = []string{
	"temperature_2m",
	"apparent_temperature",
	"relative_humidity_2m",
	"precipitation",
	"rain",
	"snowfall",
	"precipitation_probability",
	"wind_speed_10m",
	"wind_gusts_10m",
	"wind_direction_10m",
	"cloud_cover",
	"visibility",
	"uv_index",
}

var dailyVariables = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
	"rain_sum",
	"snowfall_sum",
	"precipitation_probability_max",
	"wind_speed_10m_max",
	"wind_gusts_10m_max",
	"uv_index_max",
}

var ErrCircuitOpen = errors.New("open-meteo circuit breaker open")

// StatusError is a non-200 answer from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("open-meteo: unexpected status %d: %s", e.Code, e.Body)
}

// OpenMeteoClient fetches forecast payloads. Calls are rate limited and go
// through a circuit breaker that opens after consecutive failures.
type OpenMeteoClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewOpenMeteoClient(baseURL string, rps float64, client *http.Client) *OpenMeteoClient {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if rps <= 0 {
		rps = 1
	}
	return &OpenMeteoClient{
		baseURL: baseURL,
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openmeteo",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Fetch returns current, hourly and daily data for loc with UTC timestamps.
func (c *OpenMeteoClient) Fetch(ctx context.Context, loc config.CollectLocation) (types.Payload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return types.Payload{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	u, err := c.buildURL(loc)
	if err != nil {
		return types.Payload{}, err
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, u)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return types.Payload{}, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return types.Payload{}, err
	}
	p, ok := out.(types.Payload)
	if !ok {
		return types.Payload{}, fmt.Errorf("unexpected result type %T from circuit breaker", out)
	}
	return p, nil
}

func (c *OpenMeteoClient) get(ctx context.Context, u string) (types.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return types.Payload{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.Payload{}, fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.Payload{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var p types.Payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return types.Payload{}, fmt.Errorf("decode open-meteo response: %w", err)
	}
	return p, nil
}

func (c *OpenMeteoClient) buildURL(loc config.CollectLocation) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse open-meteo url: %w", err)
	}
	q := base.Query()
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("current_weather", "true")
	q.Set("hourly", strings.Join(hourlyVariables, ","))
	q.Set("daily", strings.Join(dailyVariables, ","))
	q.Set("timezone", "UTC")
	q.Set("forecast_days", "7")
	base.RawQuery = q.Encode()
	return base.String(), nil
}
