package main

import (
	"net/http"
	"time"
)

// newServer builds the HTTP server. Requests run on the server's own base
// context, so a shutdown signal drains them instead of canceling them.
func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
