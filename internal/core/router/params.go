package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tanhakabir/spotlight-geoindex/internal/grid"
	"github.com/tanhakabir/spotlight-geoindex/internal/indexer"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return f, nil
}

// parseOrigin reads the required lat and lon query parameters.
func parseOrigin(r *http.Request) (grid.Coordinate, error) {
	q := r.URL.Query()
	rawLat, rawLon := q.Get("lat"), q.Get("lon")
	if rawLat == "" || rawLon == "" {
		return grid.Coordinate{}, badRequest("missing required parameters: lat, lon")
	}
	lat, err := parseFloat(rawLat)
	if err != nil {
		return grid.Coordinate{}, badRequest("lat: %v", err)
	}
	lon, err := parseFloat(rawLon)
	if err != nil {
		return grid.Coordinate{}, badRequest("lon: %v", err)
	}
	if err := indexer.Validate(lat, lon); err != nil {
		return grid.Coordinate{}, err
	}
	return grid.Coordinate{Lat: lat, Lon: lon}, nil
}

var (
	errNotFound  = errors.New("item not found")
	errQueueFull = errors.New("ingest queue full, retry later")
)
