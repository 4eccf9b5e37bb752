package mv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mediavault/internal/model"
)

// maxVersionAttempts bounds retries when a concurrent upload wins the same
// version number.
const maxVersionAttempts = 3

// VersionInfo describes one version of a file.
type VersionInfo struct {
	VersionNumber int64
	Blob          model.Blob
	UploaderID    int64
	UploaderName  string
	UploadedAt    time.Time
	IsCurrent     bool
}

// AddVersion ingests up as the next version of fileID and makes it current.
// Returns the new version number.
func (s *MVService) AddVersion(ctx context.Context, fileID int64, up *Upload, uploader int64) (_ int64, err error) {
	ctx, span := startSpan(ctx, "mv.AddVersion", attribute.Int64("file.id", fileID))
	defer func() { endSpan(span, err) }()

	if up == nil || up.Body == nil {
		return 0, fmt.Errorf("upload has no body: %w", ErrInvalidInput)
	}

	file, err := s.findFile(ctx, fileID)
	if err != nil {
		return 0, err
	}
	named := *up
	if named.OriginalName == "" {
		named.OriginalName = file.OriginalName
	}

	var number int64
	_, err = s.ingestor.Ingest(ctx, &named, func(ctx context.Context, blob *model.Blob) error {
		var lastErr error
		for attempt := 0; attempt < maxVersionAttempts; attempt++ {
			v, err := s.catalog.AppendVersion(ctx, &model.FileVersion{
				FileID:     fileID,
				Blob:       *blob,
				UploaderID: uploader,
				UploadedAt: s.clock.Now(),
			})
			if err == nil {
				number = v.VersionNumber
				return nil
			}
			if !errors.Is(err, ErrConflict) {
				return err
			}
			s.logger.Debug("version number taken, retrying", "file", fileID, "attempt", attempt+1)
			lastErr = err
		}
		return lastErr
	})
	if err != nil {
		return 0, fmt.Errorf("adding version to file %d: %w", fileID, err)
	}

	span.SetAttributes(attribute.Int64("file.version", number))
	s.logger.Info("version added", "file", fileID, "version", number)
	return number, nil
}

// RestoreVersion makes an existing version current again. Only the version
// pointer changes; no bytes move and the file row's own blob fields stay those
// of version 1.
func (s *MVService) RestoreVersion(ctx context.Context, fileID, versionNumber int64) (err error) {
	ctx, span := startSpan(ctx, "mv.RestoreVersion",
		attribute.Int64("file.id", fileID),
		attribute.Int64("file.version", versionNumber),
	)
	defer func() { endSpan(span, err) }()

	if versionNumber < 1 {
		return fmt.Errorf("version %d: %w", versionNumber, ErrInvalidInput)
	}
	if _, err := s.findFile(ctx, fileID); err != nil {
		return err
	}

	if err := s.catalog.SetCurrentVersion(ctx, fileID, versionNumber); err != nil {
		return fmt.Errorf("restoring version %d of file %d: %w", versionNumber, fileID, err)
	}

	s.logger.Info("version restored", "file", fileID, "version", versionNumber)
	return nil
}

// ListVersions returns every version of a file, newest first. Exactly one
// entry is flagged current.
func (s *MVService) ListVersions(ctx context.Context, fileID int64) ([]*VersionInfo, error) {
	s.logger.Debug("fetching versions", "file", fileID)

	file, err := s.findFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	rows, err := s.catalog.ListVersions(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}

	entries := make([]*VersionInfo, 0, len(rows)+1)
	entries = append(entries, initialVersion(file))
	for _, v := range rows {
		entries = append(entries, &VersionInfo{
			VersionNumber: v.VersionNumber,
			Blob:          v.Blob,
			UploaderID:    v.UploaderID,
			UploaderName:  v.UploaderName,
			UploadedAt:    v.UploadedAt,
			IsCurrent:     v.VersionNumber == file.CurrentVersion,
		})
	}

	// Reverse to newest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// resolveVersion finds a single version of file. versionNumber 0 means current.
func (s *MVService) resolveVersion(ctx context.Context, file *model.File, versionNumber int64) (*VersionInfo, error) {
	if versionNumber == 0 {
		versionNumber = file.CurrentVersion
	}
	if versionNumber == 1 {
		return initialVersion(file), nil
	}

	v, err := s.catalog.FindVersion(ctx, file.ID, versionNumber)
	if err != nil {
		return nil, fmt.Errorf("finding version: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("version %d of file %d: %w", versionNumber, file.ID, ErrNotFound)
	}

	return &VersionInfo{
		VersionNumber: v.VersionNumber,
		Blob:          v.Blob,
		UploaderID:    v.UploaderID,
		UploaderName:  v.UploaderName,
		UploadedAt:    v.UploadedAt,
		IsCurrent:     v.VersionNumber == file.CurrentVersion,
	}, nil
}

// initialVersion describes the implicit version 1 held on the file row.
func initialVersion(file *model.File) *VersionInfo {
	return &VersionInfo{
		VersionNumber: 1,
		Blob:          file.Initial,
		UploaderID:    file.UploaderID,
		UploaderName:  file.UploaderName,
		UploadedAt:    file.UploadedAt,
		IsCurrent:     file.CurrentVersion == 1,
	}
}
