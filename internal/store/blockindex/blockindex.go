// Package blockindex keeps the bigGeoBlock and geoBlock children lists in
// Redis, one sorted set per path scored by insertion time.
package blockindex

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tanhakabir/spotlight-geoindex/internal/store"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/keys"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/redisstore"
)

type redisIndex struct {
	cli       *redisstore.Client
	prefix    string
	opTimeout time.Duration
}

// NewRedisIndex returns a store.Index over cli. A positive opTimeout bounds
// every call.
func NewRedisIndex(cli *redisstore.Client, prefix string, opTimeout time.Duration) store.Index {
	return &redisIndex{cli: cli, prefix: prefix, opTimeout: opTimeout}
}

func (ix *redisIndex) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ix.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, ix.opTimeout)
}

func (ix *redisIndex) ListChildren(ctx context.Context, path string) ([]string, error) {
	if _, _, err := store.SplitPath(path); err != nil {
		return nil, err
	}
	ctx, cancel := ix.withTimeout(ctx)
	defer cancel()

	names, err := ix.cli.ZRange(ctx, keys.Children(ix.prefix, path))
	if err != nil {
		return nil, fmt.Errorf("blockindex list %q: %w", path, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (ix *redisIndex) AddChildren(ctx context.Context, children []store.Child) error {
	if len(children) == 0 {
		return nil
	}
	sets := make(map[string][]redis.Z, len(children))
	for _, c := range children {
		if _, _, err := store.SplitPath(c.Path); err != nil {
			return err
		}
		if c.Name == "" {
			return fmt.Errorf("blockindex add under %q: empty child name", c.Path)
		}
		k := keys.Children(ix.prefix, c.Path)
		sets[k] = append(sets[k], redis.Z{Score: c.Score, Member: c.Name})
	}

	ctx, cancel := ix.withTimeout(ctx)
	defer cancel()

	if err := ix.cli.ZAddNX(ctx, sets); err != nil {
		return fmt.Errorf("blockindex add %d children: %w", len(children), err)
	}
	return nil
}
