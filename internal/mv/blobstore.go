package mv

import (
	"context"
	"io"
)

// BlobStore persists raw bytes under opaque storage keys.
// All operations stream so large media never has to fit in memory.
// Implementations must validate every key on every call and fail with
// ErrAccessDenied for keys that would escape the store.
type BlobStore interface {
	// Put writes everything read from r under key and returns the byte count.
	// A partially written blob is never visible under key.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)

	// Get opens the blob stored under key. Fails with ErrNotFound if absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns every key currently stored, for reconciliation.
	List(ctx context.Context) ([]string, error)

	// ValidateSetup verifies that the store is accessible and properly configured.
	ValidateSetup() error
}
