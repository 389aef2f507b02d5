// Package firestorestore keeps the geo index in Cloud Firestore.
//
// Layout:
//
//	bigGeoBlock/{coarseKey}/children/{fineKey}   {ts: score}
//	geoBlock/{fineKey}/children/{itemKey}        {ts: score}
//	items/{itemKey}                              item record
package firestorestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/model"
	"github.com/tanhakabir/spotlight-geoindex/internal/store"
)

const (
	childrenCollection = "children"
	itemsCollection    = "items"
	scoreField         = "ts"
)

type itemDoc struct {
	UserKey   string    `firestore:"userKey"`
	Name      string    `firestore:"name"`
	Lat       float64   `firestore:"lat"`
	Lon       float64   `firestore:"lon"`
	TimeStamp time.Time `firestore:"timeStamp"`
}

type Store struct {
	client    *firestore.Client
	opTimeout time.Duration
}

var (
	_ store.Index       = (*Store)(nil)
	_ store.RecordStore = (*Store)(nil)
)

// New connects to projectID. FIRESTORE_EMULATOR_HOST is honoured by the
// client library.
func New(ctx context.Context, projectID string, opTimeout time.Duration) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client for %q: %w", projectID, err)
	}
	return &Store{client: client, opTimeout: opTimeout}, nil
}

func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("firestore close: %w", err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Store) children(path string) (*firestore.CollectionRef, error) {
	root, key, err := store.SplitPath(path)
	if err != nil {
		return nil, err
	}
	return s.client.Collection(root).Doc(key).Collection(childrenCollection), nil
}

// ListChildren returns document ids by ascending score. Firestore breaks
// score ties by document id.
func (s *Store) ListChildren(ctx context.Context, path string) ([]string, error) {
	col, err := s.children(path)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	snaps, err := col.OrderBy(scoreField, firestore.Asc).Documents(ctx).GetAll()
	observe("list", err, start)
	if err != nil {
		return nil, fmt.Errorf("firestore list %q: %w", path, err)
	}
	out := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snap.Ref.ID)
	}
	return out, nil
}

// AddChildren writes all children in one transaction, skipping documents
// that already exist.
func (s *Store) AddChildren(ctx context.Context, children []store.Child) error {
	if len(children) == 0 {
		return nil
	}
	refs := make([]*firestore.DocumentRef, 0, len(children))
	scores := make([]float64, 0, len(children))
	seen := make(map[string]struct{}, len(children))
	for _, c := range children {
		col, err := s.children(c.Path)
		if err != nil {
			return err
		}
		if c.Name == "" {
			return fmt.Errorf("firestore add under %q: empty child name", c.Path)
		}
		ref := col.Doc(c.Name)
		if _, dup := seen[ref.Path]; dup {
			continue
		}
		seen[ref.Path] = struct{}{}
		refs = append(refs, ref)
		scores = append(scores, c.Score)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for i, snap := range snaps {
			if snap.Exists() {
				continue
			}
			if err := tx.Set(refs[i], map[string]any{scoreField: scores[i]}); err != nil {
				return err
			}
		}
		return nil
	})
	observe("add", err, start)
	if err != nil {
		return fmt.Errorf("firestore add %d children: %w", len(refs), err)
	}
	return nil
}

func (s *Store) PutRecord(ctx context.Context, rec model.ItemRecord) error {
	if rec.Key == "" {
		return fmt.Errorf("firestore put: record has no key")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := itemDoc{UserKey: rec.UserKey, Name: rec.Name, Lat: rec.Lat, Lon: rec.Lon, TimeStamp: rec.TimeStamp}
	start := time.Now()
	_, err := s.client.Collection(itemsCollection).Doc(rec.Key).Set(ctx, doc)
	observe("put_record", err, start)
	if err != nil {
		return fmt.Errorf("firestore put %q: %w", rec.Key, err)
	}
	return nil
}

func (s *Store) GetRecords(ctx context.Context, keys []string) (map[string]model.ItemRecord, error) {
	out := make(map[string]model.ItemRecord, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	refs := make([]*firestore.DocumentRef, len(keys))
	for i, k := range keys {
		refs[i] = s.client.Collection(itemsCollection).Doc(k)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	snaps, err := s.client.GetAll(ctx, refs)
	observe("get_records", err, start)
	if err != nil {
		return nil, fmt.Errorf("firestore get %d records: %w", len(keys), err)
	}
	for i, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var d itemDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("firestore decode %q: %w", keys[i], err)
		}
		out[keys[i]] = model.ItemRecord{
			Key:       keys[i],
			UserKey:   d.UserKey,
			Name:      d.Name,
			Lat:       d.Lat,
			Lon:       d.Lon,
			TimeStamp: d.TimeStamp,
		}
	}
	return out, nil
}
