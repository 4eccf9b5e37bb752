package mv

import (
	"context"
	"io"

	"mediavault/internal/model"
)

// Upload is an inbound byte stream with the metadata declared by the caller.
type Upload struct {
	Body         io.Reader
	OriginalName string
	ContentType  string
	// Size is the declared length in bytes, or -1 when unknown.
	Size int64
}

// RegisterFunc records a persisted blob in the catalog. It runs only after the
// blob is fully written; if it fails the blob is removed again.
type RegisterFunc func(ctx context.Context, blob *model.Blob) error

// Ingestor moves an upload into the blob store and hands the result to register.
// An upload passes Received -> Validated -> Persisted -> Registered, or is
// Rejected at validation or persistence.
type Ingestor interface {
	Ingest(ctx context.Context, up *Upload, register RegisterFunc) (*model.Blob, error)
}
