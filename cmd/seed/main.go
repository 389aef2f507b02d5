package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/indexer"
	"github.com/tanhakabir/spotlight-geoindex/internal/ingest"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/blockindex"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/recordstore"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/redisstore"
)

func getenv(key, def string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return def
}

// scatter places n items uniformly within spread degrees of the center,
// one second apart so newest-first order is predictable.
func scatter(rng *rand.Rand, n int, lat, lon, spread float64, start time.Time) []model.ItemRecord {
	out := make([]model.ItemRecord, 0, n)
	for i := range n {
		plat := min(max(lat+(rng.Float64()*2-1)*spread, -90), 90)
		plon := min(max(lon+(rng.Float64()*2-1)*spread, -180), 180)
		out = append(out, model.ItemRecord{
			Key:       uuid.NewString(),
			UserKey:   "seed",
			Name:      fmt.Sprintf("item-%04d", i),
			Lat:       plat,
			Lon:       plon,
			TimeStamp: start.Add(time.Duration(i) * time.Second),
		})
	}
	return out
}

// records per pipelined write
const seedBatch = 500

func seedRedis(ctx context.Context, addr, prefix string, recs []model.ItemRecord) error {
	cli, err := redisstore.New(ctx, addr)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = cli.Close() }()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ix := indexer.New(blockindex.NewRedisIndex(cli, prefix, 2*time.Second), recordstore.NewRedisStore(cli, prefix), log)
	for batch := range slices.Chunk(recs, seedBatch) {
		if _, err := ix.RegisterAll(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func seedKafka(brokers []string, topic string, recs []model.ItemRecord) error {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Version = sarama.V3_6_0_0
	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("producer create: %w", err)
	}
	defer func() { _ = prod.Close() }()

	msgs := make([]*sarama.ProducerMessage, 0, len(recs))
	for _, rec := range recs {
		b, err := json.Marshal(ingest.EventFor(rec))
		if err != nil {
			return err
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(rec.Key),
			Value: sarama.ByteEncoder(b),
		})
	}
	if err := prod.SendMessages(msgs); err != nil {
		return fmt.Errorf("send messages: %w", err)
	}
	return nil
}

func main() {
	n := flag.Int("n", 100, "items to create")
	lat := flag.Float64("lat", 37.7749, "center latitude")
	lon := flag.Float64("lon", -122.4194, "center longitude")
	spread := flag.Float64("spread", 0.01, "max offset from center in degrees")
	via := flag.String("via", "redis", "redis or kafka")
	seed := flag.Uint64("seed", 1, "rng seed")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rng := rand.New(rand.NewPCG(*seed, *seed))
	recs := scatter(rng, *n, *lat, *lon, *spread, time.Now().UTC())

	var err error
	switch *via {
	case "kafka":
		brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
		err = seedKafka(brokers, getenv("KAFKA_TOPIC", "spotlight-items"), recs)
	case "redis":
		err = seedRedis(ctx, getenv("REDIS_ADDR", "localhost:6379"), getenv("REDIS_KEY_PREFIX", "spotlight"), recs)
	default:
		err = fmt.Errorf("unknown -via %q", *via)
	}
	if err != nil {
		fmt.Println("seed error:", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d items around %.4f,%.4f via %s\n", len(recs), *lat, *lon, *via)
}
