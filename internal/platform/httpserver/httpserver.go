// Package httpserver builds the http.Server both gateway processes listen
// on. Envelope POSTs are small, so tight header and write deadlines are
// safe and bound how long a slow client can hold a connection.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for a payment endpoint.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Longer than the per-request timeout middleware, so a timed-out
		// request still gets its 504 written.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}
}
