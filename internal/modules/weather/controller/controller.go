package controller

import (
	"context"
	"net/http"

	"homenet/internal/modules/weather/types"
)

// WeatherService is the part of the weather service the HTTP API uses.
type WeatherService interface {
	Ingest(ctx context.Context, req types.IngestRequest) (types.IngestResult, error)
	RecentReadings(ctx context.Context, location string, days int) ([]types.Reading, error)
	Forecast(ctx context.Context, location string) ([]types.ForecastDay, error)
	Locations(ctx context.Context) ([]types.Location, error)
}

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	service WeatherService
}

func NewWeatherController(service WeatherService) WeatherController {
	return &weatherControllerImpl{service: service}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/locations", c.handleLocations)
	mux.HandleFunc("POST /api/v1/locations/{name}/weather", c.handleIngest)
	mux.HandleFunc("GET /api/v1/locations/{name}/readings", c.handleReadings)
	mux.HandleFunc("GET /api/v1/locations/{name}/forecast", c.handleForecast)
}
