package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// Publisher enqueues item events without blocking the caller.
type Publisher struct {
	topic   string
	log     *slog.Logger
	events  chan ItemEvent
	prod    sarama.AsyncProducer
	stopped chan struct{}
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("ingest: create async producer: %w", err)
	}
	return newPublisher(prod, topic, queueSize, log), nil
}

func newPublisher(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		log:     log,
		events:  make(chan ItemEvent, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Error("ingest: marshal error", "key", ev.Key, "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				// same key, same partition: per-item order holds
				Key:   sarama.StringEncoder(ev.Key),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Error("ingest: producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish reports false when the queue is full and the event was dropped.
func (p *Publisher) Publish(ev ItemEvent) bool {
	select {
	case p.events <- ev:
		return true
	default:
		return false
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("ingest: close producer: %w", err)
	}
	return nil
}
