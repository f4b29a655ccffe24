// Package http wraps the standard net/http server and client with the
// narrow shapes the rest of the binary needs: an API-mode server that
// serves the Prometheus exposition body, and a pooled client the fleet
// fetcher issues its fan-out GETs through.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/all-smi/all-smi/internal/log"
)

// contentType is the Prometheus text exposition content type.
const contentType = "text/plain; version=0.0.4"

// MetricsSource supplies the current exposition body. The server never
// triggers collection itself; API mode refreshes the body on its own
// cadence and the server hands out whatever is current.
type MetricsSource interface {
	MetricsBody() string
}

// ServerConfig defines HTTP server configuration.
type ServerConfig struct {
	Addr    string
	Version string
}

// Server defines the API-mode HTTP server.
type Server struct {
	config ServerConfig
	server *http.Server
}

// NewServer creates a server exposing source on /metrics plus the
// /healthz and /version auxiliary endpoints. Every other path returns
// 404.
func NewServer(cfg ServerConfig, source MetricsSource) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", handleMetrics(source))
	mux.Handle("/healthz", handleHealthz())
	mux.Handle("/version", handleVersion(cfg.Version))
	mux.Handle("/", http.NotFoundHandler())

	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			IdleTimeout:  10 * time.Second,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Serve starts listening and serving requests. Failure to bind is the
// only fatal condition the server produces.
func (s *Server) Serve() error {
	log.Infof("listen on %s", s.server.Addr)

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleMetrics serves the current exposition body.
func handleMetrics(source MetricsSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, err := w.Write([]byte(source.MetricsBody()))
		if err != nil {
			log.Warnln("response write failed: ", err)
		}
	})
}

// handleHealthz reports process liveness with a tiny JSON body.
func handleHealthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"status":"ok"}`))
		if err != nil {
			log.Warnln("response write failed: ", err)
		}
	})
}

// handleVersion reports the build version string.
func handleVersion(version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := fmt.Fprintln(w, version)
		if err != nil {
			log.Warnln("response write failed: ", err)
		}
	})
}
