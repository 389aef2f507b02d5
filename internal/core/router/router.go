// Package router exposes the geo index over HTTP.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/fetcher"
	"github.com/tanhakabir/spotlight-geoindex/internal/grid"
	"github.com/tanhakabir/spotlight-geoindex/internal/indexer"
	"github.com/tanhakabir/spotlight-geoindex/internal/ingest"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
)

type Registrar interface {
	Register(ctx context.Context, rec model.ItemRecord) (model.ItemRecord, error)
}

type EventPublisher interface {
	Publish(ev ingest.ItemEvent) bool
}

type API struct {
	Fetcher   *fetcher.Fetcher
	Records   store.RecordStore
	Registrar Registrar
	// when set, item writes are queued to Kafka instead of applied inline
	Publisher EventPublisher
	Logger    *slog.Logger
}

func (a *API) Routes(r chi.Router) {
	r.Get("/keys", a.handleKeys)
	r.Get("/neighbors", a.handleNeighbors)
	r.Post("/sort", a.handleSort)
	r.Get("/nearby", a.handleNearby)
	r.Get("/cells", a.handleCells)
	r.Post("/items", a.handleCreateItem)
	r.Get("/items/{key}", a.handleGetItem)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorBody{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP codes.
func statusFor(err error) int {
	var se *fetcher.StoreError
	switch {
	case errors.Is(err, grid.ErrParse),
		errors.Is(err, indexer.ErrInvalidCoordinate),
		errors.Is(err, store.ErrBadPath),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, fetcher.ErrEmptyResult):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", code, "err", err)
	}
	writeError(w, code, err)
}
