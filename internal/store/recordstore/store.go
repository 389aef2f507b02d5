// Package recordstore keeps item metadata in Redis as one JSON value per
// item key.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/keys"
	"github.com/tanhakabir/spotlight-geoindex/internal/store/redisstore"
)

var ErrNoKey = errors.New("record has no key")

type redisRecordStore struct {
	cli    *redisstore.Client
	prefix string
}

type RedisStore interface {
	store.RecordStore
	PutRecords(ctx context.Context, recs []model.ItemRecord) error
}

func NewRedisStore(cli *redisstore.Client, prefix string) RedisStore {
	return &redisRecordStore{cli: cli, prefix: prefix}
}

func (s *redisRecordStore) PutRecord(ctx context.Context, rec model.ItemRecord) error {
	k, body, err := s.encode(rec)
	if err != nil {
		return err
	}
	if err := s.cli.Set(ctx, k, body, 0); err != nil {
		return fmt.Errorf("recordstore put %q: %w", rec.Key, err)
	}
	return nil
}

// PutRecords writes all records in one pipeline.
func (s *redisRecordStore) PutRecords(ctx context.Context, recs []model.ItemRecord) error {
	if len(recs) == 0 {
		return nil
	}
	kv := make(map[string][]byte, len(recs))
	for _, rec := range recs {
		k, body, err := s.encode(rec)
		if err != nil {
			return err
		}
		kv[k] = body
	}
	if err := s.cli.MSetWithTTL(ctx, kv, 0); err != nil {
		return fmt.Errorf("recordstore put %d records: %w", len(recs), err)
	}
	return nil
}

func (s *redisRecordStore) GetRecords(ctx context.Context, itemKeys []string) (map[string]model.ItemRecord, error) {
	if len(itemKeys) == 0 {
		return map[string]model.ItemRecord{}, nil
	}

	rk := make([]string, len(itemKeys))
	for i, id := range itemKeys {
		rk[i] = keys.Record(s.prefix, strings.TrimSpace(id))
	}

	raw, err := s.cli.MGet(ctx, rk)
	if err != nil {
		return nil, fmt.Errorf("recordstore get %d records: %w", len(rk), err)
	}

	out := make(map[string]model.ItemRecord, len(raw))
	for i, id := range itemKeys {
		body, ok := raw[rk[i]]
		if !ok {
			continue
		}
		var rec model.ItemRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("recordstore decode %q: %w", id, err)
		}
		out[id] = rec
	}
	return out, nil
}

func (s *redisRecordStore) encode(rec model.ItemRecord) (string, []byte, error) {
	id := strings.TrimSpace(rec.Key)
	if id == "" {
		return "", nil, ErrNoKey
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return "", nil, fmt.Errorf("recordstore encode %q: %w", id, err)
	}
	return keys.Record(s.prefix, id), body, nil
}
