package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendFirestore = "firestore"
)

type LogCfg struct {
	Level   string
	Console bool
	SampleN int
}

type StoreCfg struct {
	Backend           string
	RedisAddr         string
	RedisKeyPrefix    string
	// zero keeps the client default
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisDialTimeout  time.Duration
	RedisReadTimeout  time.Duration
	RedisWriteTimeout time.Duration
	FirestoreProject  string
	OpTimeout         time.Duration
	ListCacheSize     int
	ListCacheTTL      time.Duration
}

type IngestCfg struct {
	Enabled bool
	Publish bool
	Brokers []string
	Topic   string
	GroupID string
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type Config struct {
	Addr             string
	Log              LogCfg
	Store            StoreCfg
	FetchMaxInFlight int
	Ingest           IngestCfg
	Metrics          MetricsCfg
}

// Load preloads variables from the given .env files (".env" when none are
// named) without overriding the process environment, then reads FromEnv.
// Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := FromEnv()
	return cfg, cfg.Validate()
}

func FromEnv() Config {
	return Config{
		Addr: getenv("ADDR", ":8090"),
		Log: LogCfg{
			Level:   getenv("LOG_LEVEL", "info"),
			Console: getbool("LOG_CONSOLE", false),
			SampleN: getint("LOG_SAMPLE_N", 0),
		},
		Store: StoreCfg{
			Backend:           strings.ToLower(getenv("STORE_BACKEND", BackendMemory)),
			RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
			RedisKeyPrefix:    getenv("REDIS_KEY_PREFIX", "spotlight"),
			RedisPoolSize:     getint("REDIS_POOL_SIZE", 0),
			RedisMinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 0),
			RedisDialTimeout:  getduration("REDIS_DIAL_TIMEOUT", 0),
			RedisReadTimeout:  getduration("REDIS_READ_TIMEOUT", 0),
			RedisWriteTimeout: getduration("REDIS_WRITE_TIMEOUT", 0),
			FirestoreProject:  getenv("FIRESTORE_PROJECT", ""),
			OpTimeout:         getduration("STORE_OP_TIMEOUT", 2*time.Second),
			ListCacheSize:     getint("LIST_CACHE_SIZE", 4096),
			ListCacheTTL:      getduration("LIST_CACHE_TTL", 30*time.Second),
		},
		FetchMaxInFlight: getint("FETCH_MAX_INFLIGHT", 0),
		Ingest: IngestCfg{
			Enabled: getbool("INGEST_ENABLED", false),
			Publish: getbool("INGEST_PUBLISH", false),
			Brokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC", "spotlight-items"),
			GroupID: getenv("KAFKA_GROUP_ID", "geoindex-ingest"),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendFirestore:
		if c.Store.FirestoreProject == "" {
			return errors.New("config: FIRESTORE_PROJECT is required for the firestore backend")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.RedisPoolSize < 0 || c.Store.RedisMinIdleConns < 0 {
		return errors.New("config: REDIS_POOL_SIZE and REDIS_MIN_IDLE_CONNS must be >= 0")
	}
	if c.FetchMaxInFlight < 0 {
		return fmt.Errorf("config: FETCH_MAX_INFLIGHT must be >= 0, got %d", c.FetchMaxInFlight)
	}
	if (c.Ingest.Enabled || c.Ingest.Publish) && len(c.Ingest.Brokers) == 0 {
		return errors.New("config: KAFKA_BROKERS is required when ingest is on")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// "a:9092, b:9092" -> [a:9092 b:9092]
func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
