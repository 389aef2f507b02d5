// Package observability records Prometheus metrics for store lookups, fetch
// phases, the list cache, ingest and HTTP traffic.
package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	storeOps       *prometheus.CounterVec
	storeDuration  *prometheus.HistogramVec
	fetchPhases    *prometheus.CounterVec
	fetchFanout    *prometheus.HistogramVec
	fetchDuration  *prometheus.HistogramVec
	cacheResults   *prometheus.CounterVec
	ingestEvents   *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	buildInfoGauge *prometheus.GaugeVec
}

// nil until Init; every observer is a no-op while nil
var active atomic.Pointer[collectors]

// Init registers collectors on reg. With enabled=false or a nil registerer
// metrics are switched off.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		active.Store(nil)
		return
	}

	c := &collectors{
		storeOps: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_op_total",
				Help: "Store operations by op, backend and outcome.",
			},
			[]string{"op", "backend", "outcome"},
		)),
		storeDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_op_duration_seconds",
				Help:    "Store operation latency in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"op", "backend"},
		)),
		fetchPhases: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_phase_total",
				Help: "Query state machine transitions by entered phase.",
			},
			[]string{"phase"},
		)),
		fetchFanout: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetch_fanout_size",
				Help:    "Concurrent lookups issued per fan-out stage.",
				Buckets: []float64{1, 2, 4, 9, 16, 32, 64, 128, 256, 512},
			},
			[]string{"stage"},
		)),
		fetchDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetch_duration_seconds",
				Help:    "Fan-out stage latency in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"stage", "outcome"},
		)),
		cacheResults: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "list_cache_results_total",
				Help: "Children list cache lookups by outcome.",
			},
			[]string{"outcome"},
		)),
		ingestEvents: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_events_total",
				Help: "Item events consumed by outcome.",
			},
			[]string{"outcome"},
		)),
		ingestDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_message_duration_seconds",
				Help:    "Time to process one consumed Kafka message, by partition and outcome.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"partition", "outcome"},
		)),
		httpRequests: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		)),
		httpDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"method", "route", "status"},
		)),
		buildInfoGauge: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "geoindex_build_info",
				Help: "Build information for the binary.",
			},
			[]string{"version"},
		)),
	}
	active.Store(c)
}

// register tolerates a second Init against the same registry
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveStoreOp(op, backend string, err error, durationSeconds float64) {
	c := active.Load()
	if c == nil {
		return
	}
	c.storeOps.WithLabelValues(op, backend, outcome(err)).Inc()
	c.storeDuration.WithLabelValues(op, backend).Observe(durationSeconds)
}

func IncFetchPhase(phase string) {
	if c := active.Load(); c != nil {
		c.fetchPhases.WithLabelValues(phase).Inc()
	}
}

func ObserveFanout(stage string, size int, err error, durationSeconds float64) {
	c := active.Load()
	if c == nil {
		return
	}
	c.fetchFanout.WithLabelValues(stage).Observe(float64(size))
	c.fetchDuration.WithLabelValues(stage, outcome(err)).Observe(durationSeconds)
}

func IncListCacheHit() {
	if c := active.Load(); c != nil {
		c.cacheResults.WithLabelValues("hit").Inc()
	}
}

func IncListCacheMiss() {
	if c := active.Load(); c != nil {
		c.cacheResults.WithLabelValues("miss").Inc()
	}
}

// IncIngest counts a consumed event; outcome is applied, duplicate, invalid
// or error.
func IncIngest(outcome string) {
	if c := active.Load(); c != nil {
		c.ingestEvents.WithLabelValues(outcome).Inc()
	}
}

func ObserveIngestMessage(partition int32, err error, durationSeconds float64) {
	if c := active.Load(); c != nil {
		c.ingestDuration.WithLabelValues(strconv.Itoa(int(partition)), outcome(err)).Observe(durationSeconds)
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	c := active.Load()
	if c == nil {
		return
	}
	st := strconv.Itoa(status)
	c.httpRequests.WithLabelValues(method, route, st).Inc()
	c.httpDuration.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	c := active.Load()
	if c == nil {
		return
	}
	if version == "" {
		version = "dev"
	}
	c.buildInfoGauge.WithLabelValues(version).Set(1)
}
