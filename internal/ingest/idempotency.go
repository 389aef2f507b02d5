package ingest

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type keyDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, int64]
}

func newKeyDedupe(size int) *keyDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, int64](size)
	return &keyDedupe{lru: c}
}

// seen reports whether key was already applied at version v or later
func (d *keyDedupe) seen(key string, v int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lru.Get(key)
	return ok && v <= last
}

func (d *keyDedupe) record(key string, v int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(key); ok && last >= v {
		return
	}
	d.lru.Add(key, v)
}
