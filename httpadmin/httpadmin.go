// Package httpadmin exposes the management HTTP plane: /healthz and
// /metrics, served on a separate port from the DICOM listener, mirroring
// the chi-based management API shape common across the corpus's
// service-oriented repos (OtchereDev-ris-dicom-connector, marmos91-dittofs).
package httpadmin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status reports the current state an AE wants reflected on /healthz.
// Callers recompute and supply it fresh on every request via StatusFunc.
type Status struct {
	Listening          bool `json:"listening"`
	ActiveAssociations int  `json:"active_associations"`
}

// StatusFunc is called once per /healthz request.
type StatusFunc func() Status

// Server is the management HTTP plane. It is independent of the DICOM
// listener: starting or stopping it never affects in-flight associations.
type Server struct {
	httpServer *http.Server
}

// New builds a chi router with CORS, /healthz, and a Prometheus /metrics
// endpoint backed by registerer (typically metrics.Registry.Registerer()).
func New(addr string, registerer *prometheus.Registry, statusFn StatusFunc) *Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := Status{}
		if statusFn != nil {
			status = statusFn()
		}
		w.Header().Set("Content-Type", "application/json")
		if !status.Listening {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(status)
	})

	r.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start begins serving in the background. The returned error channel
// receives at most one value, from http.Server.ListenAndServe, once the
// server stops for any reason other than a graceful Shutdown.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown gracefully stops the management server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
