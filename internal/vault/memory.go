package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"mediavault/internal/mv"
)

// MemoryVault keeps blobs in a map. It is meant for tests and for throwaway
// libraries backed by a memory catalog. Safe for concurrent use.
type MemoryVault struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{blobs: make(map[string][]byte)}
}

// Put reads r fully before publishing, so readers never see a partial blob.
func (m *MemoryVault) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := checkKey(key); err != nil {
		return 0, err
	}

	data, err := io.ReadAll(&ctxReader{ctx: ctx, r: r})
	if err != nil {
		return 0, fmt.Errorf("failed to read content: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; ok {
		return 0, fmt.Errorf("storage key %q already exists: %w", key, mv.ErrConflict)
	}
	m.blobs[key] = data
	return int64(len(data)), nil
}

func (m *MemoryVault) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %q: %w", key, mv.ErrNotFound)
	}
	// Stored slices are never mutated, so readers can share them.
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryVault) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, key)
	return nil
}

func (m *MemoryVault) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blobs[key]
	return ok, nil
}

func (m *MemoryVault) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ mv.BlobStore = (*MemoryVault)(nil)
