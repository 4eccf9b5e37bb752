package mv

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"mediavault/internal/model"
)

// MaxListLimit caps a single ListFiles page.
const MaxListLimit = 1000

// CreateFile ingests up as a new file in folderID (root level when nil).
// The file starts at version 1, described by its own row.
func (s *MVService) CreateFile(ctx context.Context, up *Upload, folderID *int64, uploader int64) (_ *model.File, err error) {
	ctx, span := startSpan(ctx, "mv.CreateFile")
	defer func() { endSpan(span, err) }()

	if up == nil || up.Body == nil {
		return nil, fmt.Errorf("upload has no body: %w", ErrInvalidInput)
	}
	name := SanitizeName(up.OriginalName)
	if name == "" {
		return nil, fmt.Errorf("file name %q: %w", up.OriginalName, ErrInvalidInput)
	}
	span.SetAttributes(attribute.String("file.name", name))

	if folderID != nil {
		folder, err := s.catalog.FindFolder(ctx, *folderID)
		if err != nil {
			return nil, fmt.Errorf("finding folder: %w", err)
		}
		if folder == nil {
			return nil, fmt.Errorf("folder %d: %w", *folderID, ErrNotFound)
		}
	}

	var created *model.File
	_, err = s.ingestor.Ingest(ctx, up, func(ctx context.Context, blob *model.Blob) error {
		f, err := s.catalog.CreateFile(ctx, &model.File{
			OriginalName:   name,
			FolderID:       folderID,
			UploaderID:     uploader,
			UploadedAt:     s.clock.Now(),
			CurrentVersion: 1,
			Initial:        *blob,
		})
		if err != nil {
			return err
		}
		created = f
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %q: %w", name, err)
	}

	s.logger.Info("file created", "id", created.ID, "name", created.OriginalName, "size", created.Initial.Size)
	return created, nil
}

// GetFile returns a file with its current version resolved.
func (s *MVService) GetFile(ctx context.Context, fileID int64) (*model.File, error) {
	return s.findFile(ctx, fileID)
}

// ListFiles returns all files, newest first, one page at a time.
func (s *MVService) ListFiles(ctx context.Context, offset, limit int) ([]*model.File, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("offset %d, limit %d: %w", offset, limit, ErrInvalidInput)
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	files, err := s.catalog.ListFiles(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// Search returns files whose name contains query, newest first.
// Case sensitivity follows the configured option; insensitive matching uses
// full Unicode case folding, so "straße" finds "STRASSE".
func (s *MVService) Search(ctx context.Context, query string) (_ []*model.File, err error) {
	ctx, span := startSpan(ctx, "mv.Search", attribute.String("search.query", query))
	defer func() { endSpan(span, err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query: %w", ErrInvalidInput)
	}

	files, err := s.catalog.SearchFiles(ctx, query, s.opts.SearchCaseSensitive)
	if err != nil {
		return nil, fmt.Errorf("searching files: %w", err)
	}
	return files, nil
}

// MoveFile moves a file into targetFolderID, or to root level when nil.
// Only the original uploader may move a file. Versions are untouched.
func (s *MVService) MoveFile(ctx context.Context, fileID int64, targetFolderID *int64, requester int64) (err error) {
	ctx, span := startSpan(ctx, "mv.MoveFile", attribute.Int64("file.id", fileID))
	defer func() { endSpan(span, err) }()

	file, err := s.findFile(ctx, fileID)
	if err != nil {
		return err
	}

	if targetFolderID != nil {
		folder, err := s.catalog.FindFolder(ctx, *targetFolderID)
		if err != nil {
			return fmt.Errorf("finding target folder: %w", err)
		}
		if folder == nil {
			return fmt.Errorf("target folder %d: %w", *targetFolderID, ErrNotFound)
		}
	}

	if file.UploaderID != requester {
		return fmt.Errorf("moving file %d: %w", fileID, ErrPermissionDenied)
	}

	if err := s.catalog.UpdateFileFolder(ctx, fileID, targetFolderID); err != nil {
		return fmt.Errorf("moving file %d: %w", fileID, err)
	}

	s.logger.Info("file moved", "id", fileID, "folder", formatFolderID(targetFolderID))
	return nil
}

// findFile loads a file and maps a missing row to ErrNotFound.
func (s *MVService) findFile(ctx context.Context, fileID int64) (*model.File, error) {
	file, err := s.catalog.FindFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("file %d: %w", fileID, ErrNotFound)
	}
	return file, nil
}

func formatFolderID(id *int64) string {
	if id == nil {
		return "root"
	}
	return fmt.Sprintf("%d", *id)
}
