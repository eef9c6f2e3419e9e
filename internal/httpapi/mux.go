package httpapi

import "net/http"

// NewMux returns a mux with /healthz and, when metrics is non-nil, /metrics.
// Feature modules register their own routes on it.
func NewMux(store Pinger, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}
