// Package fetcher resolves the fine blocks around a point and the items
// inside them by fanning lookups out over a store.GeoIndexStore.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/core/observability"
	"github.com/tanhakabir/spotlight-geoindex/internal/grid"
	"github.com/tanhakabir/spotlight-geoindex/internal/logger"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
)

type Option func(*Fetcher)

// WithMaxInFlight caps concurrent lookups per fan-out. n <= 0 means no cap.
func WithMaxInFlight(n int) Option {
	return func(f *Fetcher) { f.maxInFlight = n }
}

// WithPhaseHook is called on every state transition of a Nearby query.
func WithPhaseHook(fn func(context.Context, Phase)) Option {
	return func(f *Fetcher) { f.hook = fn }
}

type Fetcher struct {
	st          store.GeoIndexStore
	log         *slog.Logger
	maxInFlight int
	hook        func(context.Context, Phase)
}

func New(st store.GeoIndexStore, log *slog.Logger, opts ...Option) *Fetcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	f := &Fetcher{st: st, log: log}
	for _, o := range opts {
		o(f)
	}
	return f
}

// ResolveFineKeys lists the fine blocks under the 9 coarse cells around
// origin. Results follow neighbour order, each list in store order. Any
// failed lookup fails the whole call.
func (f *Fetcher) ResolveFineKeys(ctx context.Context, origin grid.Coordinate) ([]string, error) {
	coarse := grid.NeighborsOf(origin.Lat, origin.Lon)
	return f.fineKeys(ctx, coarse)
}

func (f *Fetcher) fineKeys(ctx context.Context, coarse []string) ([]string, error) {
	paths := make([]string, len(coarse))
	for i, k := range coarse {
		paths[i] = store.BigGeoBlockPath(k)
	}
	batches, err := f.fanOut(ctx, "fine_keys", paths, nil)
	if err != nil {
		return nil, err
	}
	return slices.Concat(batches...), nil
}

// ResolveItemKeys lists the items of every fine block. Each block's items
// are reversed, so a chronological store listing yields newest first, and
// blocks are concatenated in input order. A block with no items is an
// *EmptyResultError.
func (f *Fetcher) ResolveItemKeys(ctx context.Context, fineKeys []string) ([]string, error) {
	if len(fineKeys) == 0 {
		return []string{}, nil
	}
	paths := make([]string, len(fineKeys))
	for i, k := range fineKeys {
		paths[i] = store.GeoBlockPath(k)
	}
	batches, err := f.fanOut(ctx, "items", paths, func(path string, names []string) error {
		if len(names) == 0 {
			return &EmptyResultError{Path: path}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	items := make([]string, 0, n)
	for _, b := range batches {
		for j := len(b) - 1; j >= 0; j-- {
			items = append(items, b[j])
		}
	}
	return items, nil
}

// Nearby runs the full query: neighbourhood, fine blocks ranked by distance
// from origin, then their items.
func (f *Fetcher) Nearby(ctx context.Context, origin grid.Coordinate) (res model.NearbyResult, err error) {
	fine := grid.FineCellOf(origin.Lat, origin.Lon)
	res.FineKey = fine.Key()
	res.CoarseKey = fine.Coarse().Key()
	ctx = logger.WithQuery(ctx, res.CoarseKey)

	ctx = f.enter(ctx, Idle)
	defer func() {
		if err != nil {
			// ctx still names the phase that failed
			f.log.WarnContext(ctx, "nearby failed", "origin", origin.String(), "err", err)
			f.enter(ctx, Errored)
			res = model.NearbyResult{}
			return
		}
		f.enter(ctx, Done)
	}()

	ctx = f.enter(ctx, FetchingCoarseNeighborhood)
	coarse, err := grid.Neighbors(res.CoarseKey)
	if err != nil {
		return res, err
	}

	ctx = f.enter(ctx, FetchingFineKeysPerNeighbor)
	blocks, err := f.fineKeys(ctx, coarse)
	if err != nil {
		return res, err
	}
	if res.Blocks, err = grid.SortByDistance(blocks, origin); err != nil {
		return res, err
	}

	ctx = f.enter(ctx, FetchingItemsPerFineKey)
	if res.Items, err = f.ResolveItemKeys(ctx, res.Blocks); err != nil {
		return res, err
	}
	f.log.DebugContext(ctx, "nearby done", "blocks", len(res.Blocks), "items", len(res.Items))
	return res, nil
}

// enter records the transition and returns ctx tagged with the new phase.
func (f *Fetcher) enter(ctx context.Context, p Phase) context.Context {
	ctx = logger.WithPhase(ctx, p.String())
	observability.IncFetchPhase(p.String())
	if f.hook != nil {
		f.hook(ctx, p)
	}
	return ctx
}

// fanOut lists every path concurrently and returns the results by path
// index. The first failure cancels the rest and is the only error returned.
func (f *Fetcher) fanOut(
	ctx context.Context,
	stage string,
	paths []string,
	check func(path string, names []string) error,
) (_ [][]string, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveFanout(stage, len(paths), err, time.Since(start).Seconds())
	}()

	out := make([][]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if f.maxInFlight > 0 {
		g.SetLimit(f.maxInFlight)
	}
	for i, p := range paths {
		g.Go(func() error {
			names, err := f.st.ListChildren(gctx, p)
			if err != nil {
				return &StoreError{Path: p, Err: err}
			}
			if check != nil {
				if err := check(p, names); err != nil {
					return err
				}
			}
			out[i] = names
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var se *StoreError
		if errors.As(err, &se) {
			f.log.DebugContext(ctx, "lookup failed", "stage", stage, "path", se.Path, "err", se.Err)
		}
		return nil, err
	}
	return out, nil
}
