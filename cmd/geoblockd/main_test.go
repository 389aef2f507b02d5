package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/config"
	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
)

func TestRedisOptions_SkipsZeroValues(t *testing.T) {
	if got := redisOptions(config.StoreCfg{}); len(got) != 0 {
		t.Fatalf("zero config must keep defaults, got %d options", len(got))
	}
	got := redisOptions(config.StoreCfg{
		RedisPoolSize:     8,
		RedisMinIdleConns: 2,
		RedisDialTimeout:  time.Second,
		RedisReadTimeout:  time.Second,
		RedisWriteTimeout: time.Second,
	})
	if len(got) != 5 {
		t.Fatalf("options=%d want 5", len(got))
	}
}

func TestOpenBackend_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	be, err := openBackend(ctx, config.StoreCfg{
		Backend:        config.BackendRedis,
		RedisAddr:      mr.Addr(),
		RedisKeyPrefix: "t",
		RedisPoolSize:  4,
		OpTimeout:      time.Second,
	})
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	defer be.Close(slog.New(slog.NewTextHandler(io.Discard, nil)))

	if len(be.checks) != 1 || be.checks[0].Ping(ctx) != nil {
		t.Fatalf("redis readiness check missing or failing")
	}
	if err := be.records.PutRecord(ctx, model.ItemRecord{Key: "k", Lat: 1, Lon: 1}); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}
}

func TestOpenBackend_DefaultIsMemory(t *testing.T) {
	be, err := openBackend(context.Background(), config.StoreCfg{Backend: config.BackendMemory})
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	if len(be.checks) != 0 || len(be.closers) != 0 {
		t.Fatalf("memory backend needs no checks or closers: %+v", be)
	}
}
