package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store. It backs tests and local development and
// follows the managed store's query rules: documents missing a filtered or
// ordered field are excluded, and equal sort keys are ordered by id.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	watchers    map[int]*memWatcher
	nextWatcher int
	now         func() time.Time
}

type memWatcher struct {
	query  Query
	signal chan struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]map[string]interface{}),
		watchers:    make(map[int]*memWatcher),
		now:         time.Now,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Create(collection, id, data)
	})
}

func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Set(collection, id, data)
	})
}

func (m *Memory) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Document{ID: id, Data: copyData(data)}, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	return m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Update(collection, id, patch)
	})
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	return m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Delete(collection, id)
	})
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.query(q), nil
}

func (m *Memory) Count(ctx context.Context, q Query) (int, error) {
	if err := validateQuery(q); err != nil {
		return 0, err
	}
	q.Limit, q.Offset, q.OrderBy = 0, 0, ""
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.query(q)), nil
}

// RunTransaction holds the store lock for the duration of fn, so fn must only
// use tx and never call methods on m.
func (m *Memory) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	tx := &memTx{m: m, writes: make(map[docKey]map[string]interface{})}
	if err := fn(ctx, tx); err != nil {
		m.mu.Unlock()
		return err
	}
	changed := tx.commit()
	m.mu.Unlock()

	m.notify(changed)
	return nil
}

func (m *Memory) Watch(ctx context.Context, q Query) (<-chan Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	w := &memWatcher{query: q, signal: make(chan struct{}, 1)}
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = w
	m.mu.Unlock()

	out := make(chan Snapshot)
	w.signal <- struct{}{}

	go func() {
		defer close(out)
		defer func() {
			m.mu.Lock()
			delete(m.watchers, id)
			m.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.signal:
			}

			m.mu.RLock()
			docs := m.query(q)
			m.mu.RUnlock()

			select {
			case out <- Snapshot{Documents: docs, ReadTime: m.now().UTC()}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) notify(collections map[string]struct{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, w := range m.watchers {
		if _, ok := collections[w.query.Collection]; !ok {
			continue
		}
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// query expects m.mu to be held.
func (m *Memory) query(q Query) []Document {
	var docs []Document
	for id, data := range m.collections[q.Collection] {
		if !matches(data, q.Filters) {
			continue
		}
		if q.OrderBy != "" {
			if _, ok := data[q.OrderBy]; !ok {
				continue
			}
		}
		docs = append(docs, Document{ID: id, Data: copyData(data)})
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if q.OrderBy != "" {
			c, ok := compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
			if ok && c != 0 {
				if q.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		return docs[i].ID < docs[j].ID
	})

	if q.Offset > 0 {
		if q.Offset >= len(docs) {
			return nil
		}
		docs = docs[q.Offset:]
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}

type docKey struct {
	collection string
	id         string
}

type memTx struct {
	m      *Memory
	writes map[docKey]map[string]interface{}
	order  []docKey
	wrote  bool
}

func (tx *memTx) lookup(collection, id string) (map[string]interface{}, bool) {
	key := docKey{collection, id}
	if data, ok := tx.writes[key]; ok {
		return data, data != nil
	}
	data, ok := tx.m.collections[collection][id]
	return data, ok
}

func (tx *memTx) stage(collection, id string, data map[string]interface{}) {
	key := docKey{collection, id}
	if _, ok := tx.writes[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.writes[key] = data
	tx.wrote = true
}

func (tx *memTx) Get(collection, id string) (*Document, error) {
	if tx.wrote {
		return nil, fmt.Errorf("read after write in transaction: %w", ErrInvalidQuery)
	}
	data, ok := tx.lookup(collection, id)
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Document{ID: id, Data: copyData(data)}, nil
}

func (tx *memTx) Create(collection, id string, data map[string]interface{}) error {
	if _, ok := tx.lookup(collection, id); ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	tx.stage(collection, id, copyData(data))
	return nil
}

func (tx *memTx) Set(collection, id string, data map[string]interface{}) error {
	tx.stage(collection, id, copyData(data))
	return nil
}

func (tx *memTx) Update(collection, id string, patch map[string]interface{}) error {
	current, ok := tx.lookup(collection, id)
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	merged := copyData(current)
	for k, v := range patch {
		merged[k] = copyValue(v)
	}
	tx.stage(collection, id, merged)
	return nil
}

func (tx *memTx) Delete(collection, id string) error {
	if _, ok := tx.lookup(collection, id); !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	tx.stage(collection, id, nil)
	return nil
}

func (tx *memTx) commit() map[string]struct{} {
	changed := make(map[string]struct{})
	for _, key := range tx.order {
		data := tx.writes[key]
		coll, ok := tx.m.collections[key.collection]
		if !ok {
			coll = make(map[string]map[string]interface{})
			tx.m.collections[key.collection] = coll
		}
		if data == nil {
			delete(coll, key.id)
		} else {
			coll[key.id] = data
		}
		changed[key.collection] = struct{}{}
	}
	return changed
}

func matches(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		c, ok := compareValues(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if c != 0 {
				return false
			}
		case OpLess:
			if c >= 0 {
				return false
			}
		case OpLessOrEqual:
			if c > 0 {
				return false
			}
		case OpGreater:
			if c <= 0 {
				return false
			}
		case OpGreaterOrEqual:
			if c < 0 {
				return false
			}
		}
	}
	return true
}

// compareValues orders two document values of the same kind. The second
// result is false when the values are not comparable.
func compareValues(a, b interface{}) (int, bool) {
	if an, ok := toFloat(a); ok {
		bn, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		}
		return 0, true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case nil:
		if b == nil {
			return 0, true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func copyData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	if s, ok := v.([]string); ok {
		return append([]string(nil), s...)
	}
	return v
}
