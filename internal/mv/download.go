package mv

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
)

// Download is an open version of a file. The caller must close Body.
type Download struct {
	Name    string
	Version *VersionInfo
	Body    io.ReadCloser
}

// OpenFile opens the bytes of a file version for reading. versionNumber 0
// selects the current version.
func (s *MVService) OpenFile(ctx context.Context, fileID, versionNumber int64) (_ *Download, err error) {
	ctx, span := startSpan(ctx, "mv.OpenFile",
		attribute.Int64("file.id", fileID),
		attribute.Int64("file.version", versionNumber),
	)
	defer func() { endSpan(span, err) }()

	if versionNumber < 0 {
		return nil, fmt.Errorf("version %d: %w", versionNumber, ErrInvalidInput)
	}

	file, err := s.findFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	version, err := s.resolveVersion(ctx, file, versionNumber)
	if err != nil {
		return nil, err
	}

	body, err := s.blobs.Get(ctx, version.Blob.StorageName)
	if err != nil {
		return nil, fmt.Errorf("opening blob %s: %w", version.Blob.StorageName, err)
	}

	s.logger.Debug("file opened", "id", fileID, "version", version.VersionNumber, "key", version.Blob.StorageName)
	return &Download{Name: file.OriginalName, Version: version, Body: body}, nil
}
