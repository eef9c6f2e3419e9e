package controller

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	defaultDays = 7
	maxDays     = 365
)

func parseDays(r *http.Request) (int, error) {
	s := r.URL.Query().Get("days")
	if s == "" {
		return defaultDays, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'days' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'days' must be > 0")
	}
	if n > maxDays {
		return 0, errors.New("'days' must be <= 365")
	}
	return n, nil
}
