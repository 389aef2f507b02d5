package indexer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/fetcher"
	"github.com/tanhakabir/spotlight-geoindex/internal/grid"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/memstore"
)

func TestRegister_LinksRecordIntoBothLevels(t *testing.T) {
	ms := memstore.New()
	ix := New(ms, ms, nil)
	ctx := context.Background()

	ts := time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)
	rec, err := ix.Register(ctx, model.ItemRecord{Key: "p1", Name: "pier", Lat: 37.5, Lon: -122.25, TimeStamp: ts})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	blocks, _ := ms.ListChildren(ctx, store.BigGeoBlockPath("037_-123"))
	if diff := cmp.Diff([]string{"0375000_-1222500"}, blocks); diff != "" {
		t.Fatalf("coarse children (-want +got):\n%s", diff)
	}
	items, _ := ms.ListChildren(ctx, store.GeoBlockPath("0375000_-1222500"))
	if diff := cmp.Diff([]string{"p1"}, items); diff != "" {
		t.Fatalf("fine children (-want +got):\n%s", diff)
	}
	got, _ := ms.GetRecords(ctx, []string{"p1"})
	if diff := cmp.Diff(map[string]model.ItemRecord{"p1": rec}, got); diff != "" {
		t.Fatalf("record (-want +got):\n%s", diff)
	}
}

func TestRegister_AssignsKeyAndTimestamp(t *testing.T) {
	ms := memstore.New()
	ix := New(ms, ms, nil)
	fixed := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ix.now = func() time.Time { return fixed }

	rec, err := ix.Register(context.Background(), model.ItemRecord{Lat: 1.5, Lon: 2.5})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := uuid.Parse(rec.Key); err != nil {
		t.Fatalf("key %q is not a uuid: %v", rec.Key, err)
	}
	if !rec.TimeStamp.Equal(fixed) {
		t.Fatalf("ts=%v want %v", rec.TimeStamp, fixed)
	}
}

func TestRegister_RejectsBadInput(t *testing.T) {
	ms := memstore.New()
	ix := New(ms, ms, nil)
	ctx := context.Background()

	for _, c := range []grid.Coordinate{{Lat: math.NaN()}, {Lon: math.Inf(1)}, {Lat: 181}, {Lon: -180.5}} {
		if _, err := ix.Register(ctx, model.ItemRecord{Lat: c.Lat, Lon: c.Lon}); !errors.Is(err, ErrInvalidCoordinate) {
			t.Fatalf("%v: want ErrInvalidCoordinate, got %v", c, err)
		}
	}
	if _, err := ix.Register(ctx, model.ItemRecord{Key: "a/b"}); !errors.Is(err, store.ErrBadPath) {
		t.Fatalf("want ErrBadPath for slash in key, got %v", err)
	}
	if ms.Size() != 0 {
		t.Fatalf("rejected items must not be indexed")
	}
}

// items registered in time order come back newest first through the fetcher
func TestRegister_ThenNearbyIsNewestFirst(t *testing.T) {
	ms := memstore.New()
	ix := New(ms, ms, nil)
	ctx := context.Background()
	base := time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)

	for i, k := range []string{"first", "second", "third"} {
		_, err := ix.Register(ctx, model.ItemRecord{Key: k, Lat: 0.25, Lon: 0.5, TimeStamp: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("Register %s: %v", k, err)
		}
	}
	// a later re-register must not move "first" to the front
	if _, err := ix.Register(ctx, model.ItemRecord{Key: "first", Lat: 0.25, Lon: 0.5, TimeStamp: base.Add(time.Hour)}); err != nil {
		t.Fatalf("re-Register: %v", err)
	}

	res, err := fetcher.New(ms, nil).Nearby(ctx, grid.Coordinate{Lat: 0.25, Lon: 0.5})
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if diff := cmp.Diff([]string{"third", "second", "first"}, res.Items); diff != "" {
		t.Fatalf("items (-want +got):\n%s", diff)
	}
}

type batchRecords struct {
	*memstore.Store
	batches int
}

func (b *batchRecords) PutRecords(ctx context.Context, recs []model.ItemRecord) error {
	b.batches++
	for _, rec := range recs {
		if err := b.PutRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func TestRegisterAll_UsesBatchWrites(t *testing.T) {
	ms := memstore.New()
	br := &batchRecords{Store: ms}
	ix := New(ms, br, nil)
	ctx := context.Background()
	ts := time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)

	out, err := ix.RegisterAll(ctx, []model.ItemRecord{
		{Key: "a", Lat: 0.25, Lon: 0.5, TimeStamp: ts},
		{Key: "b", Lat: 0.25, Lon: 0.5, TimeStamp: ts.Add(time.Second)},
		{Lat: -0.25, Lon: 0.5, TimeStamp: ts},
	})
	if err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if br.batches != 1 || len(out) != 3 || out[2].Key == "" {
		t.Fatalf("batches=%d out=%+v", br.batches, out)
	}
	items, _ := ms.ListChildren(ctx, store.GeoBlockPath("0002500_0005000"))
	if diff := cmp.Diff([]string{"a", "b"}, items); diff != "" {
		t.Fatalf("fine children (-want +got):\n%s", diff)
	}
	got, _ := ms.GetRecords(ctx, []string{"a", "b", out[2].Key})
	if len(got) != 3 {
		t.Fatalf("records=%v", got)
	}
}

func TestRegisterAll_ValidatesWholeBatchFirst(t *testing.T) {
	ms := memstore.New()
	ix := New(ms, ms, nil)
	_, err := ix.RegisterAll(context.Background(), []model.ItemRecord{
		{Key: "ok", Lat: 1, Lon: 1},
		{Key: "x/y", Lat: 1, Lon: 1},
	})
	if !errors.Is(err, store.ErrBadPath) {
		t.Fatalf("want ErrBadPath, got %v", err)
	}
	if ms.Size() != 0 {
		t.Fatalf("nothing may be written when one item is invalid")
	}
}

func TestValidateKey(t *testing.T) {
	for _, k := range []string{"", "abc", "item-1"} {
		if err := ValidateKey(k); err != nil {
			t.Fatalf("ValidateKey(%q): %v", k, err)
		}
	}
	if err := ValidateKey("a/b"); !errors.Is(err, store.ErrBadPath) {
		t.Fatalf("want ErrBadPath, got %v", err)
	}
}

func TestRegister_MovedItemStaysListedUnderFirstBlock(t *testing.T) {
	ms := memstore.New()
	ix := New(ms, ms, nil)
	ctx := context.Background()
	ts := time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)

	if _, err := ix.Register(ctx, model.ItemRecord{Key: "m", Lat: 0.25, Lon: 0.5, TimeStamp: ts}); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.Register(ctx, model.ItemRecord{Key: "m", Lat: 1.5, Lon: 1.5, TimeStamp: ts.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}

	old, _ := ms.ListChildren(ctx, store.GeoBlockPath("0002500_0005000"))
	if diff := cmp.Diff([]string{"m"}, old); diff != "" {
		t.Fatalf("first block must keep the item (-want +got):\n%s", diff)
	}
	moved, _ := ms.ListChildren(ctx, store.GeoBlockPath("0015000_0015000"))
	if diff := cmp.Diff([]string{"m"}, moved); diff != "" {
		t.Fatalf("new block (-want +got):\n%s", diff)
	}
	recs, _ := ms.GetRecords(ctx, []string{"m"})
	if recs["m"].Lat != 1.5 {
		t.Fatalf("record must hold the latest write, got %+v", recs["m"])
	}
}
