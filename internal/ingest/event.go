// Package ingest moves item registrations through Kafka: a non-blocking
// publisher on the write path and a consumer group that registers them.
package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/indexer"
)

const EventVersion = 1

type ItemEvent struct {
	Version int       `json:"version"`
	Key     string    `json:"key"`
	UserKey string    `json:"user_key,omitempty"`
	Name    string    `json:"name,omitempty"`
	Lat     float64   `json:"lat"`
	Lon     float64   `json:"lon"`
	TS      time.Time `json:"ts"`
}

func EventFor(rec model.ItemRecord) ItemEvent {
	return ItemEvent{
		Version: EventVersion,
		Key:     rec.Key,
		UserKey: rec.UserKey,
		Name:    rec.Name,
		Lat:     rec.Lat,
		Lon:     rec.Lon,
		TS:      rec.TimeStamp,
	}
}

func (e ItemEvent) Record() model.ItemRecord {
	return model.ItemRecord{
		Key:       e.Key,
		UserKey:   e.UserKey,
		Name:      e.Name,
		Lat:       e.Lat,
		Lon:       e.Lon,
		TimeStamp: e.TS,
	}
}

// Validate requires key and ts so redelivery stays idempotent.
func (e ItemEvent) Validate() error {
	if e.Version != EventVersion {
		return fmt.Errorf("version must be %d", EventVersion)
	}
	if strings.TrimSpace(e.Key) == "" {
		return errors.New("key is required")
	}
	if err := indexer.ValidateKey(e.Key); err != nil {
		return err
	}
	if e.TS.IsZero() {
		return errors.New("ts is required")
	}
	return indexer.Validate(e.Lat, e.Lon)
}
