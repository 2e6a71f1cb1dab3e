package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Read and idle timeouts are tight because
// clients are dashboards and hospital integrations, not long-poll consumers.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
