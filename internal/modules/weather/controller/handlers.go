package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"homenet/internal/modules/weather/types"
	"homenet/internal/utils"
)

func (c *weatherControllerImpl) handleLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := c.service.Locations(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, locations)
}

func (c *weatherControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing location name")
		return
	}

	var req types.IngestRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	// The path names the location; a location in the body is ignored.
	req.Location = name

	res, err := c.service.Ingest(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, res)
}

func (c *weatherControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing location name")
		return
	}

	days, err := parseDays(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.service.RecentReadings(r.Context(), name, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"location": name,
		"days":     days,
		"items":    readings,
	})
}

func (c *weatherControllerImpl) handleForecast(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing location name")
		return
	}

	days, err := c.service.Forecast(r.Context(), name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"location": name,
		"items":    days,
	})
}

// writeServiceError maps domain errors to status codes. Storage details are
// logged, not returned.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		utils.WriteError(w, http.StatusBadRequest, verr.Error())
		return
	}
	slog.Error("weather request failed", "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "storage failure")
}
