// Package lrucache fronts a store.Index with an expiring LRU of children
// lists.
package lrucache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/observability"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
)

type Index struct {
	next  store.Index
	cache *expirable.LRU[string, []string]

	// mu orders miss fills against write invalidation. gen is bumped by
	// every write; a miss only fills the cache if no write landed since it
	// started reading.
	mu  sync.Mutex
	gen uint64
}

var _ store.Index = (*Index)(nil)

// Wrap returns next unchanged when size <= 0.
func Wrap(next store.Index, size int, ttl time.Duration) store.Index {
	if size <= 0 {
		return next
	}
	return &Index{
		next:  next,
		cache: expirable.NewLRU[string, []string](size, nil, ttl),
	}
}

func (c *Index) ListChildren(ctx context.Context, path string) ([]string, error) {
	if v, ok := c.cache.Get(path); ok {
		observability.IncListCacheHit()
		return slices.Clone(v), nil
	}
	observability.IncListCacheMiss()

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	v, err := c.next.ListChildren(ctx, path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.cache.Add(path, slices.Clone(v))
	}
	c.mu.Unlock()
	return v, nil
}

// AddChildren writes through and drops every touched path.
func (c *Index) AddChildren(ctx context.Context, children []store.Child) error {
	err := c.next.AddChildren(ctx, children)

	c.mu.Lock()
	c.gen++
	for _, ch := range children {
		c.cache.Remove(ch.Path)
	}
	c.mu.Unlock()
	return err
}
