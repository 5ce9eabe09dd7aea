package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/models/store"
	"github.com/de-tools/service-map/pkg/store/entity"
)

// Store keeps every record kind in process. Records are held in their
// persisted form so reads never alias caller-owned values.
type Store struct {
	assets      *table[domain.Asset, store.Asset]
	assetGroups *table[domain.AssetGroup, store.AssetGroup]
	services    *table[domain.Service, store.Service]
	indicators  *table[domain.Indicator, store.Indicator]
	assetOwners *table[domain.AssetOwner, store.AssetOwner]
}

func NewStore() *Store {
	return &Store{
		assets:      newTable(entity.AssetCodec),
		assetGroups: newTable(entity.AssetGroupCodec),
		services:    newTable(entity.ServiceCodec),
		indicators:  newTable(entity.IndicatorCodec),
		assetOwners: newTable(entity.AssetOwnerCodec),
	}
}

func (s *Store) Assets() entity.ScoredTable[domain.Asset]     { return s.assets }
func (s *Store) AssetGroups() entity.Table[domain.AssetGroup] { return s.assetGroups }
func (s *Store) Services() entity.ScoredTable[domain.Service] { return s.services }
func (s *Store) Indicators() entity.Table[domain.Indicator]   { return s.indicators }
func (s *Store) AssetOwners() entity.Table[domain.AssetOwner] { return s.assetOwners }

type document[R any] struct {
	record R
	attrs  map[string]string
}

type table[T any, R any] struct {
	codec entity.Codec[T, R]
	mu    sync.RWMutex
	order []string
	docs  map[string]document[R]
}

func newTable[T any, R any](codec entity.Codec[T, R]) *table[T, R] {
	return &table[T, R]{codec: codec, docs: make(map[string]document[R])}
}

func newDocument[R any](record R) (document[R], error) {
	attrs, err := entity.Attributes(record)
	if err != nil {
		return document[R]{}, err
	}
	return document[R]{record: record, attrs: attrs}, nil
}

func (t *table[T, R]) load(doc document[R]) (T, error) {
	v, err := t.codec.FromRecord(doc.record)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s: %w", t.codec.Kind, err)
	}
	return v, nil
}

func (t *table[T, R]) Get(_ context.Context, id string) (*T, error) {
	t.mu.RLock()
	doc, ok := t.docs[id]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", t.codec.Kind, id, entity.ErrNotFound)
	}
	item, err := t.load(doc)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *table[T, R]) Scan(ctx context.Context, filters ...entity.Filter) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	items := make([]T, 0)
	for _, id := range t.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc := t.docs[id]
		lookup := func(attr string) (string, bool) {
			v, ok := doc.attrs[attr]
			return v, ok
		}
		if !entity.MatchAll(filters, lookup) {
			continue
		}
		item, err := t.load(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (t *table[T, R]) Put(_ context.Context, item T) error {
	id := t.codec.ID(item)
	if id == "" {
		return fmt.Errorf("put %s: empty id", t.codec.Kind)
	}
	record, err := t.codec.ToRecord(item)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", t.codec.Kind, id, err)
	}
	doc, err := newDocument(record)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", t.codec.Kind, id, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.docs[id]; !exists {
		t.order = append(t.order, id)
	}
	t.docs[id] = doc
	return nil
}

// SetScore rewrites the score attribute of the stored record in place.
func (t *table[T, R]) SetScore(_ context.Context, id string, score int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, ok := t.docs[id]
	if !ok {
		return fmt.Errorf("%s %s: %w", t.codec.Kind, id, entity.ErrNotFound)
	}
	record, err := withScore(doc.record, score)
	if err != nil {
		return fmt.Errorf("score %s %s: %w", t.codec.Kind, id, err)
	}
	updated, err := newDocument(record)
	if err != nil {
		return fmt.Errorf("score %s %s: %w", t.codec.Kind, id, err)
	}
	t.docs[id] = updated
	return nil
}

func (t *table[T, R]) Delete(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.docs[id]; !exists {
		return nil
	}
	delete(t.docs, id)
	t.order = slices.DeleteFunc(t.order, func(v string) bool { return v == id })
	return nil
}

func withScore[R any](record R, score int) (R, error) {
	var updated R
	buf, err := json.Marshal(record)
	if err != nil {
		return updated, err
	}
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(buf, &attrs); err != nil {
		return updated, err
	}
	attrs[entity.AttrScore] = json.RawMessage(strconv.Itoa(score))
	if buf, err = json.Marshal(attrs); err != nil {
		return updated, err
	}
	err = json.Unmarshal(buf, &updated)
	return updated, err
}
