// Package httpserver builds the process's http.Server.
package httpserver

import (
	"net/http"
	"time"

	"takenotes/internal/platform/config"
)

// writeGrace leaves room to flush a response after the request timeout fires.
const writeGrace = 5 * time.Second

// New builds an HTTP server whose write deadline outlives the request timeout,
// so handlers that observe a cancelled context can still write their error.
func New(cfg config.Server, handler http.Handler) *http.Server {
	writeTimeout := 30 * time.Second
	if cfg.RequestTimeout > 0 {
		writeTimeout = cfg.RequestTimeout + writeGrace
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
}
