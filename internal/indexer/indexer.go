// Package indexer registers items into the geo index: the item record plus
// its entries under the bigGeoBlock and geoBlock paths.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/grid"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

type Indexer struct {
	index   store.ChildWriter
	records store.RecordStore
	log     *slog.Logger
	now     func() time.Time
}

func New(index store.ChildWriter, records store.RecordStore, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Indexer{index: index, records: records, log: log, now: time.Now}
}

// Validate checks the coordinate range. Latitude shares the longitude
// range; the lattice does not clamp to the poles.
func Validate(lat, lon float64) error {
	for _, v := range []float64{lat, lon} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < -180 || v > 180 {
			return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, lat, lon)
		}
	}
	return nil
}

// ValidateKey rejects item keys that would split a store path. An empty
// key is allowed; Register assigns one.
func ValidateKey(key string) error {
	if strings.Contains(key, "/") {
		return fmt.Errorf("item key %q: %w", key, store.ErrBadPath)
	}
	return nil
}

// Register stores rec and links it into its fine and coarse blocks. A
// missing key gets a random uuid and a missing timestamp the current time.
// Re-registering a key overwrites the record, but index entries are never
// removed: the first score wins within a block, and a write with new
// coordinates adds the item to the new block while the old entries stay.
func (ix *Indexer) Register(ctx context.Context, rec model.ItemRecord) (model.ItemRecord, error) {
	rec, err := ix.prepare(rec)
	if err != nil {
		return model.ItemRecord{}, err
	}
	if err := ix.records.PutRecord(ctx, rec); err != nil {
		return model.ItemRecord{}, fmt.Errorf("register %s: %w", rec.Key, err)
	}
	if err := ix.index.AddChildren(ctx, childrenOf(rec)); err != nil {
		return model.ItemRecord{}, fmt.Errorf("register %s: %w", rec.Key, err)
	}

	ix.log.DebugContext(ctx, "item registered", "key", rec.Key, "fine_key", grid.FineKey(rec.Lat, rec.Lon))
	return rec, nil
}

// BatchRecordStore writes many records in one round trip.
type BatchRecordStore interface {
	PutRecords(ctx context.Context, recs []model.ItemRecord) error
}

// RegisterAll is Register for a batch: every record is validated first, then
// records and children are each written in one call. Stores without
// PutRecords get one PutRecord per item.
func (ix *Indexer) RegisterAll(ctx context.Context, recs []model.ItemRecord) ([]model.ItemRecord, error) {
	out := make([]model.ItemRecord, len(recs))
	children := make([]store.Child, 0, 2*len(recs))
	for i, rec := range recs {
		p, err := ix.prepare(rec)
		if err != nil {
			return nil, fmt.Errorf("register batch item %d: %w", i, err)
		}
		out[i] = p
		children = append(children, childrenOf(p)...)
	}
	if len(out) == 0 {
		return out, nil
	}

	if b, ok := ix.records.(BatchRecordStore); ok {
		if err := b.PutRecords(ctx, out); err != nil {
			return nil, fmt.Errorf("register batch: %w", err)
		}
	} else {
		for _, rec := range out {
			if err := ix.records.PutRecord(ctx, rec); err != nil {
				return nil, fmt.Errorf("register %s: %w", rec.Key, err)
			}
		}
	}
	if err := ix.index.AddChildren(ctx, children); err != nil {
		return nil, fmt.Errorf("register batch: %w", err)
	}
	ix.log.DebugContext(ctx, "items registered", "count", len(out))
	return out, nil
}

func (ix *Indexer) prepare(rec model.ItemRecord) (model.ItemRecord, error) {
	if err := Validate(rec.Lat, rec.Lon); err != nil {
		return model.ItemRecord{}, err
	}
	rec.Key = strings.TrimSpace(rec.Key)
	if err := ValidateKey(rec.Key); err != nil {
		return model.ItemRecord{}, err
	}
	if rec.Key == "" {
		rec.Key = uuid.NewString()
	}
	if rec.TimeStamp.IsZero() {
		rec.TimeStamp = ix.now().UTC()
	}
	return rec, nil
}

// childrenOf scores both entries by the item timestamp in ms.
func childrenOf(rec model.ItemRecord) []store.Child {
	fine := grid.FineCellOf(rec.Lat, rec.Lon)
	fineKey := fine.Key()
	score := float64(rec.TimeStamp.UnixMilli())
	return []store.Child{
		{Path: store.BigGeoBlockPath(fine.Coarse().Key()), Name: fineKey, Score: score},
		{Path: store.GeoBlockPath(fineKey), Name: rec.Key, Score: score},
	}
}
