package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/indexer"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
	obs "github.com/tanhakabir/spotlight-geoindex/internal/core/observability"
	mylog "github.com/tanhakabir/spotlight-geoindex/internal/logger"
)

type Registrar interface {
	Register(ctx context.Context, rec model.ItemRecord) (model.ItemRecord, error)
}

type ConsumerConfig struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	DedupeSize          int
}

func DefaultConsumerConfig(brokers []string, topic, groupID string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:             brokers,
		Topic:               topic,
		GroupID:             groupID,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		InitialOffsetOldest: true,
		DedupeSize:          8192,
	}
}

type Consumer struct {
	cfg    ConsumerConfig
	logger *slog.Logger
	reg    Registrar
	dedupe *keyDedupe
	zlog   *zerolog.Logger
}

func NewConsumer(cfg ConsumerConfig, logger *slog.Logger, zl *zerolog.Logger, reg Registrar) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	base := mylog.WithComponent(context.Background(), "ingest_consumer")
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		reg:    reg,
		dedupe: newKeyDedupe(cfg.DedupeSize),
		zlog:   mylog.FromContext(base, zl),
	}
}

// Start consumes until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.reg == nil {
		return errors.New("ingest: missing registrar")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := newGroupHandler(c.ProcessOne)

	c.logger.Info("item ingest consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("item ingest consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				if ctx.Err() != nil {
					continue
				}
				c.zlog.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
		}
	}
}

// ProcessOne registers a single item event. Malformed events are logged and
// skipped so they do not block the partition.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev ItemEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncIngest("invalid")
		c.logMsgErr(ctx, msg, "decode", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.IncIngest("invalid")
		c.logMsgErr(ctx, msg, "validate", err)
		return nil
	}

	v := ev.TS.UnixMilli()
	if c.dedupe.seen(ev.Key, v) {
		obs.IncIngest("duplicate")
		return nil
	}

	if _, err := c.reg.Register(ctx, ev.Record()); err != nil {
		// rejected input will never register; skip it like a bad event
		if errors.Is(err, store.ErrBadPath) || errors.Is(err, indexer.ErrInvalidCoordinate) {
			obs.IncIngest("invalid")
			c.logMsgErr(ctx, msg, "register", err)
			return nil
		}
		obs.IncIngest("error")
		c.logMsgErr(ctx, msg, "register", err)
		return fmt.Errorf("register %s: %w", ev.Key, err)
	}
	c.dedupe.record(ev.Key, v)
	obs.IncIngest("applied")

	mylog.FromContext(ctx, c.zlog).Debug().
		Str("event", "item_registered").
		Str("key", ev.Key).
		Int64("offset", msg.Offset).
		Msg("item ingested")
	return nil
}

func (c *Consumer) logMsgErr(ctx context.Context, msg *sarama.ConsumerMessage, kind string, err error) {
	mylog.FromContext(ctx, c.zlog).Error().
		Err(err).
		Str("kind", kind).
		Str("topic", msg.Topic).
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("kafka error")
}
