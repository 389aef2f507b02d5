package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestPublisher_SendsKeyedJSON(t *testing.T) {
	prod := mocks.NewAsyncProducer(t, nil)
	prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		if m.Topic != "spotlight-items" {
			return fmt.Errorf("topic=%q", m.Topic)
		}
		k, _ := m.Key.Encode()
		if string(k) != "item-1" {
			return fmt.Errorf("key=%q", k)
		}
		v, _ := m.Value.Encode()
		var ev ItemEvent
		if err := json.Unmarshal(v, &ev); err != nil {
			return err
		}
		if ev.Key != "item-1" || ev.Version != 1 || ev.Lat != 1.5 {
			return fmt.Errorf("event=%+v", ev)
		}
		return nil
	})

	p := newPublisher(prod, "spotlight-items", 4, slog.New(slog.DiscardHandler))
	if !p.Publish(ItemEvent{Version: 1, Key: "item-1", Lat: 1.5, TS: ts0}) {
		t.Fatalf("Publish dropped with an empty queue")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublisher_ProducerErrorsDoNotBlock(t *testing.T) {
	prod := mocks.NewAsyncProducer(t, nil)
	prod.ExpectInputAndFail(errors.New("broker down"))
	prod.ExpectInputAndSucceed()

	p := newPublisher(prod, "spotlight-items", 4, slog.New(slog.DiscardHandler))
	p.Publish(ItemEvent{Version: 1, Key: "a", TS: ts0})
	p.Publish(ItemEvent{Version: 1, Key: "b", TS: ts0})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublisher_DropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	p := &Publisher{events: make(chan ItemEvent, 1), stopped: block}

	if !p.Publish(ItemEvent{Key: "a"}) {
		t.Fatalf("first publish should be queued")
	}
	if p.Publish(ItemEvent{Key: "b"}) {
		t.Fatalf("second publish should be dropped")
	}
}
