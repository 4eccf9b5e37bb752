package testutil

import (
	"strings"
	"testing"

	"mediavault/internal/database"
	"mediavault/internal/ingest"
	"mediavault/internal/mv"
)

// TestMaxUploadSize is the ingest limit used by NewTestService (4MB).
const TestMaxUploadSize int64 = 4 * 1024 * 1024

// TestService bundles an MVService with the collaborators tests need to inspect.
type TestService struct {
	*mv.MVService
	Catalog *database.SQLiteCatalog
	Blobs   mv.BlobStore
	Clock   *StubClock
	IDs     *StubIDGenerator
}

// NewTestService wires an MVService over an in-memory catalog and blobs.
// Pass a nil blobs to get a fresh in-memory store.
func NewTestService(t *testing.T, blobs mv.BlobStore, opts mv.Options) *TestService {
	t.Helper()
	return NewTestServiceWithCatalog(t, NewTestCatalog(t), blobs, opts)
}

// NewTestServiceWithCatalog is NewTestService over the given catalog.
func NewTestServiceWithCatalog(t *testing.T, catalog *database.SQLiteCatalog, blobs mv.BlobStore, opts mv.Options) *TestService {
	t.Helper()

	if blobs == nil {
		blobs = NewTestBlobStore()
	}
	clock := FixedClock()
	ids := NewStubIDGenerator()
	logger := mv.NewNopLogger()

	pipeline, err := ingest.NewPipeline(blobs, logger, clock, ids, TestMaxUploadSize, []string{"video/*", "audio/*", "image/*"})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	return &TestService{
		MVService: mv.NewMVService(catalog, blobs, pipeline, logger, clock, opts),
		Catalog:   catalog,
		Blobs:     blobs,
		Clock:     clock,
		IDs:       ids,
	}
}

// NewUpload builds an Upload with a declared size matching data.
func NewUpload(name, contentType, data string) *mv.Upload {
	return &mv.Upload{
		Body:         strings.NewReader(data),
		OriginalName: name,
		ContentType:  contentType,
		Size:         int64(len(data)),
	}
}
