package lrucache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tanhakabir/spotlight-geoindex/internal/store"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/memstore"
)

type countingIndex struct {
	store.Index
	lists atomic.Int64
	err   error
}

func (c *countingIndex) ListChildren(ctx context.Context, path string) ([]string, error) {
	c.lists.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.Index.ListChildren(ctx, path)
}

func TestWrap_ServesRepeatsFromCache(t *testing.T) {
	inner := &countingIndex{Index: memstore.New()}
	idx := Wrap(inner, 16, time.Minute)
	ctx := context.Background()
	p := store.GeoBlockPath("0000000_0000000")

	_ = inner.Index.AddChildren(ctx, []store.Child{{Path: p, Name: "a", Score: 1}})

	for range 3 {
		got, err := idx.ListChildren(ctx, p)
		if err != nil {
			t.Fatalf("ListChildren: %v", err)
		}
		if diff := cmp.Diff([]string{"a"}, got); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
	}
	if n := inner.lists.Load(); n != 1 {
		t.Fatalf("inner lists=%d want 1", n)
	}
}

func TestWrap_ReturnsCopies(t *testing.T) {
	inner := memstore.New()
	idx := Wrap(inner, 16, time.Minute)
	ctx := context.Background()
	p := store.GeoBlockPath("x")
	_ = idx.AddChildren(ctx, []store.Child{{Path: p, Name: "a"}})

	got, _ := idx.ListChildren(ctx, p)
	got[0] = "mutated"
	again, _ := idx.ListChildren(ctx, p)
	if again[0] != "a" {
		t.Fatalf("caller mutation leaked into cache: %v", again)
	}
}

func TestWrap_WriteInvalidatesPath(t *testing.T) {
	inner := &countingIndex{Index: memstore.New()}
	idx := Wrap(inner, 16, time.Minute)
	ctx := context.Background()
	p := store.GeoBlockPath("x")

	_, _ = idx.ListChildren(ctx, p)
	if err := idx.AddChildren(ctx, []store.Child{{Path: p, Name: "new", Score: 1}}); err != nil {
		t.Fatalf("AddChildren: %v", err)
	}
	got, _ := idx.ListChildren(ctx, p)
	if diff := cmp.Diff([]string{"new"}, got); diff != "" {
		t.Fatalf("stale list after write (-want +got):\n%s", diff)
	}
	if n := inner.lists.Load(); n != 2 {
		t.Fatalf("inner lists=%d want 2", n)
	}
}

func TestWrap_ErrorsAreNotCached(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingIndex{Index: memstore.New(), err: boom}
	idx := Wrap(inner, 16, time.Minute)
	p := store.GeoBlockPath("x")

	for range 2 {
		if _, err := idx.ListChildren(context.Background(), p); !errors.Is(err, boom) {
			t.Fatalf("want boom, got %v", err)
		}
	}
	if n := inner.lists.Load(); n != 2 {
		t.Fatalf("inner lists=%d want 2", n)
	}
}

func TestWrap_DisabledReturnsInner(t *testing.T) {
	inner := memstore.New()
	if got := Wrap(inner, 0, time.Minute); got != store.Index(inner) {
		t.Fatalf("size 0 must return the inner index")
	}
}

// blockingIndex parks the first ListChildren after it has read the store
// until release is closed.
type blockingIndex struct {
	store.Index
	read    chan struct{}
	release chan struct{}
	once    atomic.Bool
}

func (b *blockingIndex) ListChildren(ctx context.Context, path string) ([]string, error) {
	v, err := b.Index.ListChildren(ctx, path)
	if b.once.CompareAndSwap(false, true) {
		close(b.read)
		<-b.release
	}
	return v, err
}

func TestWrap_MissRacingWriteDoesNotCacheStaleList(t *testing.T) {
	inner := &blockingIndex{Index: memstore.New(), read: make(chan struct{}), release: make(chan struct{})}
	idx := Wrap(inner, 16, time.Minute)
	ctx := context.Background()
	p := store.GeoBlockPath("x")
	_ = inner.Index.AddChildren(ctx, []store.Child{{Path: p, Name: "old", Score: 1}})

	done := make(chan []string, 1)
	go func() {
		v, _ := idx.ListChildren(ctx, p)
		done <- v
	}()

	<-inner.read
	// the reader holds the pre-write list; the write finishes first
	if err := idx.AddChildren(ctx, []store.Child{{Path: p, Name: "new", Score: 2}}); err != nil {
		t.Fatalf("AddChildren: %v", err)
	}
	close(inner.release)
	if diff := cmp.Diff([]string{"old"}, <-done); diff != "" {
		t.Fatalf("racing read (-want +got):\n%s", diff)
	}

	got, _ := idx.ListChildren(ctx, p)
	if diff := cmp.Diff([]string{"old", "new"}, got); diff != "" {
		t.Fatalf("stale list cached after racing write (-want +got):\n%s", diff)
	}
}
