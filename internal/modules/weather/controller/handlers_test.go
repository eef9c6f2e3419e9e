package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"homenet/internal/modules/weather/types"
)

type mockService struct {
	ingestReq types.IngestRequest
	ingestRes types.IngestResult
	ingestErr error

	readingsName string
	readingsDays int
	readings     []types.Reading
	readingsErr  error

	forecast    []types.ForecastDay
	forecastErr error

	locations    []types.Location
	locationsErr error
}

func (m *mockService) Ingest(_ context.Context, req types.IngestRequest) (types.IngestResult, error) {
	m.ingestReq = req
	return m.ingestRes, m.ingestErr
}

func (m *mockService) RecentReadings(_ context.Context, name string, days int) ([]types.Reading, error) {
	m.readingsName, m.readingsDays = name, days
	return m.readings, m.readingsErr
}

func (m *mockService) Forecast(context.Context, string) ([]types.ForecastDay, error) {
	return m.forecast, m.forecastErr
}

func (m *mockService) Locations(context.Context) ([]types.Location, error) {
	return m.locations, m.locationsErr
}

func newMux(svc *mockService) *http.ServeMux {
	mux := http.NewServeMux()
	NewWeatherController(svc).RegisterRoutes(mux)
	return mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestLocations(t *testing.T) {
	svc := &mockService{locations: []types.Location{{ID: 1, Name: "Austin", Latitude: 30.27, Longitude: -97.74}}}
	rec := serve(newMux(svc), http.MethodGet, "/api/v1/locations", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var got []types.Location
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Austin" {
		t.Errorf("locations = %+v", got)
	}
}

func TestIngest(t *testing.T) {
	body := `{
		"location": "ignored",
		"latitude": 30.27,
		"current_weather": {"time": "2024-05-01T12:00", "temperature": 20, "windspeed": 5, "winddirection": 90, "weathercode": 1},
		"hourly": {"time": ["2024-05-01T00:00"], "temperature_2m": [18]}
	}`

	t.Run("created", func(t *testing.T) {
		svc := &mockService{ingestRes: types.IngestResult{LocationID: 3, Instant: 1, Hourly: 1}}
		rec := serve(newMux(svc), http.MethodPost, "/api/v1/locations/Austin/weather", body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d; want 201 (%s)", rec.Code, rec.Body.String())
		}
		if svc.ingestReq.Location != "Austin" {
			t.Errorf("Location = %q; want path name", svc.ingestReq.Location)
		}
		if svc.ingestReq.Latitude == nil || *svc.ingestReq.Latitude != 30.27 {
			t.Errorf("Latitude = %v", svc.ingestReq.Latitude)
		}
		if svc.ingestReq.Payload.Current == nil || svc.ingestReq.Payload.Hourly == nil {
			t.Errorf("payload sections not decoded: %+v", svc.ingestReq.Payload)
		}
		var res types.IngestResult
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if res.LocationID != 3 || res.Hourly != 1 {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("validation error is 400", func(t *testing.T) {
		svc := &mockService{ingestErr: &types.ValidationError{Section: "daily", Field: "rain_sum", Index: -1, Reason: "required"}}
		rec := serve(newMux(svc), http.MethodPost, "/api/v1/locations/Austin/weather", body)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "daily.rain_sum") {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("storage error is 500 without details", func(t *testing.T) {
		svc := &mockService{ingestErr: &types.StorageError{Op: "commit", Err: errors.New("secret dsn")}}
		rec := serve(newMux(svc), http.MethodPost, "/api/v1/locations/Austin/weather", body)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want 500", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "secret") {
			t.Errorf("body leaks cause: %q", rec.Body.String())
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		svc := &mockService{}
		rec := serve(newMux(svc), http.MethodPost, "/api/v1/locations/Austin/weather", `{"hourly": [`)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want 400", rec.Code)
		}
	})
}

func TestReadings(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	temp := 20.5

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantDays   int
	}{
		{name: "default days", query: "", wantStatus: http.StatusOK, wantDays: 7},
		{name: "explicit days", query: "?days=2", wantStatus: http.StatusOK, wantDays: 2},
		{name: "zero days", query: "?days=0", wantStatus: http.StatusBadRequest},
		{name: "too many days", query: "?days=366", wantStatus: http.StatusBadRequest},
		{name: "not a number", query: "?days=week", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{readings: []types.Reading{{Location: "Austin", Kind: types.KindHourly, Timestamp: ts, Temperature: &temp}}}
			rec := serve(newMux(svc), http.MethodGet, "/api/v1/locations/Austin/readings"+tt.query, "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d; want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if svc.readingsDays != tt.wantDays || svc.readingsName != "Austin" {
				t.Errorf("called with (%q, %d); want (Austin, %d)", svc.readingsName, svc.readingsDays, tt.wantDays)
			}
			var body struct {
				Items []map[string]any `json:"items"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Items) != 1 || body.Items[0]["timestamp"] != "2024-05-01T12:00:00Z" {
				t.Errorf("items = %v", body.Items)
			}
		})
	}
}

func TestForecast(t *testing.T) {
	hi := 30.0
	svc := &mockService{forecast: []types.ForecastDay{
		{Location: "Austin", DailyForecast: types.DailyForecast{Date: "2024-05-01", TempMax: &hi}},
	}}
	rec := serve(newMux(svc), http.MethodGet, "/api/v1/locations/Austin/forecast", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var body struct {
		Location string           `json:"location"`
		Items    []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Location != "Austin" || len(body.Items) != 1 {
		t.Fatalf("body = %+v", body)
	}
	if body.Items[0]["date"] != "2024-05-01" || body.Items[0]["temp_max"] != 30.0 || body.Items[0]["temp_min"] != nil {
		t.Errorf("item = %v", body.Items[0])
	}

	svc.forecastErr = &types.StorageError{Op: "forecast", Err: errors.New("down")}
	rec = serve(newMux(svc), http.MethodGet, "/api/v1/locations/Austin/forecast", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want 500", rec.Code)
	}
}

func TestRouting_WrongMethod(t *testing.T) {
	rec := serve(newMux(&mockService{}), http.MethodGet, "/api/v1/locations/Austin/weather", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
