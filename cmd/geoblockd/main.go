package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/config"
	"github.com/tanhakabir/spotlight-geoindex/internal/core/health"
	"github.com/tanhakabir/spotlight-geoindex/internal/core/observability"
	"github.com/tanhakabir/spotlight-geoindex/internal/core/router"
	"github.com/tanhakabir/spotlight-geoindex/internal/core/server"
	"github.com/tanhakabir/spotlight-geoindex/internal/fetcher"
	"github.com/tanhakabir/spotlight-geoindex/internal/indexer"
	"github.com/tanhakabir/spotlight-geoindex/internal/ingest"
	"github.com/tanhakabir/spotlight-geoindex/internal/logger"
	"github.com/tanhakabir/spotlight-geoindex/internal/metrics"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/blockindex"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/firestorestore"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/lrucache"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/memstore"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/recordstore"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/redisstore"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

// backend is the selected storage plus what the server needs around it.
type backend struct {
	index   store.Index
	records store.RecordStore
	checks  []health.Check
	closers []io.Closer
}

// redisOptions maps the configured pool and timeouts; zero values are left
// to the client defaults.
func redisOptions(cfg config.StoreCfg) []redisstore.Option {
	var opts []redisstore.Option
	if cfg.RedisPoolSize > 0 {
		opts = append(opts, redisstore.WithPoolSize(cfg.RedisPoolSize))
	}
	if cfg.RedisMinIdleConns > 0 {
		opts = append(opts, redisstore.WithMinIdleConns(cfg.RedisMinIdleConns))
	}
	if cfg.RedisDialTimeout > 0 {
		opts = append(opts, redisstore.WithDialTimeout(cfg.RedisDialTimeout))
	}
	if cfg.RedisReadTimeout > 0 {
		opts = append(opts, redisstore.WithReadTimeout(cfg.RedisReadTimeout))
	}
	if cfg.RedisWriteTimeout > 0 {
		opts = append(opts, redisstore.WithWriteTimeout(cfg.RedisWriteTimeout))
	}
	return opts
}

func openBackend(ctx context.Context, cfg config.StoreCfg) (*backend, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		cli, err := redisstore.New(ctx, cfg.RedisAddr, redisOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return &backend{
			index:   blockindex.NewRedisIndex(cli, cfg.RedisKeyPrefix, cfg.OpTimeout),
			records: recordstore.NewRedisStore(cli, cfg.RedisKeyPrefix),
			checks:  []health.Check{{Name: "redis", Ping: cli.Ping}},
			closers: []io.Closer{cli},
		}, nil
	case config.BackendFirestore:
		fs, err := firestorestore.New(ctx, cfg.FirestoreProject, cfg.OpTimeout)
		if err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
		return &backend{index: fs, records: fs, closers: []io.Closer{fs}}, nil
	default:
		ms := memstore.New()
		return &backend{index: ms, records: ms}, nil
	}
}

func (b *backend) Close(log *slog.Logger) {
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			log.Warn("close backend", "err", err)
		}
	}
}

func run() int {
	envFile := flag.String("env", ".env", "dotenv file to preload")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
		SampleN:   cfg.Log.SampleN,
		Backend:   cfg.Store.Backend,
		Component: "geoblockd",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	p := metrics.Init(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Addr:    cfg.Metrics.Addr,
		Path:    cfg.Metrics.Path,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	observability.Init(p.Registerer(), true)
	observability.ExposeBuildInfo(Version)

	appLog.Info("starting geoblockd",
		"addr", cfg.Addr,
		"version", Version,
		"backend", cfg.Store.Backend,
		"ingest", cfg.Ingest.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg.Store)
	if err != nil {
		appLog.Error("backend setup failed", "err", err)
		return 1
	}
	defer be.Close(appLog)

	index := lrucache.Wrap(be.index, cfg.Store.ListCacheSize, cfg.Store.ListCacheTTL)
	f := fetcher.New(index, appLog, fetcher.WithMaxInFlight(cfg.FetchMaxInFlight))
	ix := indexer.New(index, be.records, appLog)

	api := &router.API{
		Fetcher:   f,
		Records:   be.records,
		Registrar: ix,
		Logger:    appLog,
	}
	if cfg.Ingest.Publish {
		pub, err := ingest.NewPublisher(cfg.Ingest.Brokers, cfg.Ingest.Topic, 1024, appLog)
		if err != nil {
			appLog.Error("kafka publisher setup failed", "err", err)
			return 1
		}
		defer func() { _ = pub.Close() }()
		api.Publisher = pub
	}

	// the dedicated listener only runs when METRICS_ENABLED; /metrics on the
	// main router is always available
	h := server.NewHandler(appLog, api, p.Handler(), be.checks...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, cfg.Addr, h, appLog) })
	g.Go(func() error { return p.Serve(gctx, appLog) })
	if cfg.Ingest.Enabled {
		cons := ingest.NewConsumer(
			ingest.DefaultConsumerConfig(cfg.Ingest.Brokers, cfg.Ingest.Topic, cfg.Ingest.GroupID),
			appLog, &zl, ix)
		g.Go(func() error { return cons.Start(gctx) })
	}

	if err := g.Wait(); err != nil {
		appLog.Error("geoblockd exited with error", "err", err)
		return 1
	}
	appLog.Info("geoblockd stopped")
	return 0
}
