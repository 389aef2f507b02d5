package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"ADDR", "STORE_BACKEND", "STORE_OP_TIMEOUT", "KAFKA_BROKERS", "LIST_CACHE_SIZE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Addr != ":8090" || c.Store.Backend != BackendMemory {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Store.OpTimeout != 2*time.Second || c.Store.ListCacheSize != 4096 {
		t.Fatalf("store defaults: %+v", c.Store)
	}
	if !reflect.DeepEqual(c.Ingest.Brokers, []string{"localhost:9092"}) {
		t.Fatalf("brokers=%v", c.Ingest.Brokers)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("STORE_OP_TIMEOUT", "150ms")
	t.Setenv("FETCH_MAX_INFLIGHT", "16")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("INGEST_ENABLED", "yes")
	t.Setenv("LIST_CACHE_SIZE", "oops")
	t.Setenv("REDIS_POOL_SIZE", "32")
	t.Setenv("REDIS_READ_TIMEOUT", "750ms")

	c := FromEnv()
	if c.Store.Backend != BackendRedis {
		t.Fatalf("backend=%q", c.Store.Backend)
	}
	if c.Store.OpTimeout != 150*time.Millisecond || c.FetchMaxInFlight != 16 {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if !reflect.DeepEqual(c.Ingest.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("brokers=%v", c.Ingest.Brokers)
	}
	if !c.Ingest.Enabled {
		t.Fatalf("ingest should be enabled")
	}
	if c.Store.RedisPoolSize != 32 || c.Store.RedisReadTimeout != 750*time.Millisecond {
		t.Fatalf("redis overrides: %+v", c.Store)
	}
	if c.Store.ListCacheSize != 4096 {
		t.Fatalf("bad int must fall back to default, got %d", c.Store.ListCacheSize)
	}
}

func TestValidate(t *testing.T) {
	base := FromEnv()

	bad := base
	bad.Store.Backend = "cassandra"
	if bad.Validate() == nil {
		t.Fatalf("unknown backend must fail")
	}

	fs := base
	fs.Store.Backend = BackendFirestore
	fs.Store.FirestoreProject = ""
	if fs.Validate() == nil {
		t.Fatalf("firestore without project must fail")
	}

	pool := base
	pool.Store.RedisPoolSize = -1
	if pool.Validate() == nil {
		t.Fatalf("negative redis pool size must fail")
	}

	neg := base
	neg.FetchMaxInFlight = -1
	if neg.Validate() == nil {
		t.Fatalf("negative in-flight limit must fail")
	}
}

func TestLoad_DotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("REDIS_KEY_PREFIX=fromfile\nADDR=:7000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ADDR", ":7777")
	t.Setenv("REDIS_KEY_PREFIX", "")
	t.Cleanup(func() { os.Unsetenv("REDIS_KEY_PREFIX") })
	os.Unsetenv("REDIS_KEY_PREFIX")

	c, err := Load(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":7777" {
		t.Fatalf("process env must win, got %q", c.Addr)
	}
	if c.Store.RedisKeyPrefix != "fromfile" {
		t.Fatalf("dotenv value missing, got %q", c.Store.RedisKeyPrefix)
	}
}
