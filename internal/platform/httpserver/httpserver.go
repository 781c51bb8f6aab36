package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server. WriteTimeout stays above the longest responder
// call so fan-out queries are not cut off mid-response.
func New(addr string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}
