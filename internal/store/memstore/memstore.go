// Package memstore is an in-process store.Index and store.RecordStore,
// sharded by xxhash of the path or item key.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
)

const numShards = 64

type Store struct {
	children [numShards]childShard
	records  [numShards]recordShard
}

type childShard struct {
	mu sync.RWMutex
	m  map[string]map[string]float64 // path -> name -> score
}

type recordShard struct {
	mu sync.RWMutex
	m  map[string]model.ItemRecord
}

var (
	_ store.Index       = (*Store)(nil)
	_ store.RecordStore = (*Store)(nil)
)

func New() *Store {
	s := &Store{}
	for i := range s.children {
		s.children[i].m = make(map[string]map[string]float64)
		s.records[i].m = make(map[string]model.ItemRecord)
	}
	return s
}

func shardOf(key string) int {
	return int(xxhash.Sum64String(key) & (numShards - 1))
}

type entry struct {
	name  string
	score float64
}

// ListChildren returns names by ascending score, then by name.
func (s *Store) ListChildren(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, _, err := store.SplitPath(path); err != nil {
		return nil, err
	}

	sh := &s.children[shardOf(path)]
	sh.mu.RLock()
	set := sh.m[path]
	es := make([]entry, 0, len(set))
	for name, score := range set {
		es = append(es, entry{name: name, score: score})
	}
	sh.mu.RUnlock()

	slices.SortFunc(es, func(a, b entry) int {
		if c := cmp.Compare(a.score, b.score); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.name
	}
	return out, nil
}

// AddChildren holds every touched shard for the whole batch so readers never
// observe half of it.
func (s *Store) AddChildren(ctx context.Context, children []store.Child) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var touched [numShards]bool
	for _, c := range children {
		if _, _, err := store.SplitPath(c.Path); err != nil {
			return err
		}
		if c.Name == "" {
			return fmt.Errorf("memstore add under %q: empty child name", c.Path)
		}
		touched[shardOf(c.Path)] = true
	}

	// ascending shard order keeps concurrent batches deadlock free
	for i := range touched {
		if touched[i] {
			s.children[i].mu.Lock()
		}
	}
	for _, c := range children {
		sh := &s.children[shardOf(c.Path)]
		set := sh.m[c.Path]
		if set == nil {
			set = make(map[string]float64)
			sh.m[c.Path] = set
		}
		if _, ok := set[c.Name]; !ok {
			set[c.Name] = c.Score
		}
	}
	for i := range touched {
		if touched[i] {
			s.children[i].mu.Unlock()
		}
	}
	return nil
}

func (s *Store) PutRecord(ctx context.Context, rec model.ItemRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.Key) == "" {
		return fmt.Errorf("memstore put: record has no key")
	}
	sh := &s.records[shardOf(rec.Key)]
	sh.mu.Lock()
	sh.m[rec.Key] = rec
	sh.mu.Unlock()
	return nil
}

func (s *Store) GetRecords(ctx context.Context, keys []string) (map[string]model.ItemRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]model.ItemRecord, len(keys))
	for _, k := range keys {
		sh := &s.records[shardOf(k)]
		sh.mu.RLock()
		rec, ok := sh.m[k]
		sh.mu.RUnlock()
		if ok {
			out[k] = rec
		}
	}
	return out, nil
}

// Size reports the number of non-empty paths.
func (s *Store) Size() int {
	total := 0
	for i := range s.children {
		s.children[i].mu.RLock()
		total += len(s.children[i].m)
		s.children[i].mu.RUnlock()
	}
	return total
}
