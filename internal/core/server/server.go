package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/health"
	middleware "github.com/tanhakabir/spotlight-geoindex/internal/core/middleware"
	"github.com/tanhakabir/spotlight-geoindex/internal/core/router"
)

// NewHandler wires probes, metrics and the /v1 API behind the common
// middleware chain. A nil metrics handler leaves /metrics unmounted.
func NewHandler(logger *slog.Logger, api *router.API, metrics http.Handler, checks ...health.Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(2*time.Second, checks...))
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Route("/v1", api.Routes)
	return r
}

// Run serves handler on addr until ctx is done, then drains in-flight
// requests.
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
