package testutil

import (
	"context"
	"io"
	"sync"

	"mediavault/internal/mv"
	"mediavault/internal/vault"
)

// NewTestBlobStore creates a new in-memory blob store for testing.
func NewTestBlobStore() *vault.MemoryVault {
	return vault.NewMemoryVault()
}

// FaultyBlobStore wraps a BlobStore and fails selected operations.
type FaultyBlobStore struct {
	mv.BlobStore

	mu        sync.Mutex
	PutErr    error
	DeleteErr error
	deletes   []string
}

// NewFaultyBlobStore wraps an in-memory blob store.
func NewFaultyBlobStore() *FaultyBlobStore {
	return &FaultyBlobStore{BlobStore: vault.NewMemoryVault()}
}

func (f *FaultyBlobStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	f.mu.Lock()
	err := f.PutErr
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.BlobStore.Put(ctx, key, r)
}

func (f *FaultyBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, key)
	err := f.DeleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.BlobStore.Delete(ctx, key)
}

// Deletes returns every key Delete was called with, in order.
func (f *FaultyBlobStore) Deletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}
