// Package store defines the capabilities the geo index needs from its
// backing key/value store.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
)

const (
	BigGeoBlockRoot = "bigGeoBlock"
	GeoBlockRoot    = "geoBlock"
)

// GeoIndexStore lists child key names under a hierarchical path. A path
// with no children yields an empty list, not an error.
type GeoIndexStore interface {
	ListChildren(ctx context.Context, path string) ([]string, error)
}

// Child is one entry to add under Path. Score orders siblings ascending.
type Child struct {
	Path  string
	Name  string
	Score float64
}

// ChildWriter adds children atomically. Re-adding an existing child keeps
// its first score.
type ChildWriter interface {
	AddChildren(ctx context.Context, children []Child) error
}

type Index interface {
	GeoIndexStore
	ChildWriter
}

// RecordStore keeps item metadata keyed by item key.
type RecordStore interface {
	PutRecord(ctx context.Context, rec model.ItemRecord) error
	GetRecords(ctx context.Context, keys []string) (map[string]model.ItemRecord, error)
}

var ErrBadPath = errors.New("invalid store path")

func BigGeoBlockPath(coarseKey string) string {
	return BigGeoBlockRoot + "/" + coarseKey
}

func GeoBlockPath(fineKey string) string {
	return GeoBlockRoot + "/" + fineKey
}

// SplitPath splits "root/key" into its two segments.
func SplitPath(path string) (root, key string, err error) {
	root, key, ok := strings.Cut(path, "/")
	if !ok || root == "" || key == "" || strings.Contains(key, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	return root, key, nil
}
