package main

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/tanhakabir/spotlight-geoindex/internal/indexer"
)

func TestScatter_StaysInBoundsAndOrdered(t *testing.T) {
	start := time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)
	recs := scatter(rand.New(rand.NewPCG(1, 1)), 50, 89.999, 179.999, 0.01, start)
	if len(recs) != 50 {
		t.Fatalf("len=%d", len(recs))
	}
	seen := map[string]bool{}
	for i, r := range recs {
		if err := indexer.Validate(r.Lat, r.Lon); err != nil || r.Lat > 90 || r.Lon > 180 {
			t.Fatalf("record %d out of range: %+v", i, r)
		}
		if seen[r.Key] {
			t.Fatalf("duplicate key %s", r.Key)
		}
		seen[r.Key] = true
		if i > 0 && !r.TimeStamp.After(recs[i-1].TimeStamp) {
			t.Fatalf("timestamps not increasing at %d", i)
		}
	}
}

func TestSeedRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	recs := scatter(rand.New(rand.NewPCG(2, 2)), seedBatch+10, 0.5, 0.5, 0.001, time.Now().UTC())
	if err := seedRedis(context.Background(), mr.Addr(), "t", recs); err != nil {
		t.Fatalf("seedRedis: %v", err)
	}
	items := 0
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "t:item:") {
			items++
		}
	}
	if items != len(recs) {
		t.Fatalf("item records=%d want %d", items, len(recs))
	}
}
