package testutil

import (
	"context"
	"sync"

	"github.com/alaga-care/care-service/internal/docstore"
)

// FaultyStore wraps a Store and fails writes to selected collections. Tests
// use it to check that a failed transaction leaves nothing behind.
type FaultyStore struct {
	docstore.Store

	mu       sync.RWMutex
	failures map[string]error
}

func NewFaultyStore(inner docstore.Store) *FaultyStore {
	return &FaultyStore{Store: inner, failures: make(map[string]error)}
}

// FailWrites makes every write to collection return err, inside or outside
// a transaction.
func (s *FaultyStore) FailWrites(collection string, err error) {
	s.mu.Lock()
	s.failures[collection] = err
	s.mu.Unlock()
}

func (s *FaultyStore) failure(collection string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures[collection]
}

func (s *FaultyStore) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if err := s.failure(collection); err != nil {
		return err
	}
	return s.Store.Create(ctx, collection, id, data)
}

func (s *FaultyStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if err := s.failure(collection); err != nil {
		return err
	}
	return s.Store.Set(ctx, collection, id, data)
}

func (s *FaultyStore) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	if err := s.failure(collection); err != nil {
		return err
	}
	return s.Store.Update(ctx, collection, id, patch)
}

func (s *FaultyStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.failure(collection); err != nil {
		return err
	}
	return s.Store.Delete(ctx, collection, id)
}

func (s *FaultyStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.Store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	docstore.Tx
	store *FaultyStore
}

func (tx *faultyTx) Create(collection, id string, data map[string]interface{}) error {
	if err := tx.store.failure(collection); err != nil {
		return err
	}
	return tx.Tx.Create(collection, id, data)
}

func (tx *faultyTx) Set(collection, id string, data map[string]interface{}) error {
	if err := tx.store.failure(collection); err != nil {
		return err
	}
	return tx.Tx.Set(collection, id, data)
}

func (tx *faultyTx) Update(collection, id string, patch map[string]interface{}) error {
	if err := tx.store.failure(collection); err != nil {
		return err
	}
	return tx.Tx.Update(collection, id, patch)
}

func (tx *faultyTx) Delete(collection, id string) error {
	if err := tx.store.failure(collection); err != nil {
		return err
	}
	return tx.Tx.Delete(collection, id)
}
