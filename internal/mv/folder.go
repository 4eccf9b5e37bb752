package mv

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"mediavault/internal/model"
)

// FolderContents holds the direct children of a folder.
type FolderContents struct {
	Folder  *model.Folder // nil for root level
	Folders []*model.Folder
	Files   []*model.File
}

// PathEntry is one breadcrumb element.
type PathEntry struct {
	ID   int64
	Name string
}

// CreateFolder creates a folder named name under parentID (root level when nil).
// The name is sanitized first; an empty result is ErrInvalidInput. A sibling
// with the same name yields ErrConflict.
func (s *MVService) CreateFolder(ctx context.Context, name string, parentID *int64, creator int64) (_ *model.Folder, err error) {
	ctx, span := startSpan(ctx, "mv.CreateFolder", attribute.String("folder.name", name))
	defer func() { endSpan(span, err) }()

	clean := SanitizeName(name)
	if clean == "" {
		return nil, fmt.Errorf("folder name %q: %w", name, ErrInvalidInput)
	}

	if parentID != nil {
		parent, err := s.catalog.FindFolder(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("finding parent folder: %w", err)
		}
		if parent == nil {
			return nil, fmt.Errorf("parent folder %d: %w", *parentID, ErrNotFound)
		}
	}

	folder, err := s.catalog.CreateFolder(ctx, &model.Folder{
		Name:      clean,
		ParentID:  parentID,
		CreatorID: creator,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating folder %q: %w", clean, err)
	}

	s.logger.Info("folder created", "id", folder.ID, "name", folder.Name)
	return folder, nil
}

// ListContents returns the direct subfolders and files of folderID, or of the
// root level when folderID is nil.
func (s *MVService) ListContents(ctx context.Context, folderID *int64) (_ *FolderContents, err error) {
	ctx, span := startSpan(ctx, "mv.ListContents")
	defer func() { endSpan(span, err) }()

	contents := &FolderContents{}
	if folderID != nil {
		folder, err := s.catalog.FindFolder(ctx, *folderID)
		if err != nil {
			return nil, fmt.Errorf("finding folder: %w", err)
		}
		if folder == nil {
			return nil, fmt.Errorf("folder %d: %w", *folderID, ErrNotFound)
		}
		contents.Folder = folder
	}

	contents.Folders, err = s.catalog.ListSubfolders(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing subfolders: %w", err)
	}

	contents.Files, err = s.catalog.ListFilesInFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	return contents, nil
}

// ResolvePath returns the breadcrumb from the root to folderID.
// This is best-effort: a missing ancestor or a parent cycle truncates the
// path instead of failing, and an unknown folderID yields an empty path.
func (s *MVService) ResolvePath(ctx context.Context, folderID int64) ([]PathEntry, error) {
	var path []PathEntry
	seen := make(map[int64]bool)

	id := folderID
	for {
		folder, err := s.catalog.FindFolder(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("finding folder %d: %w", id, err)
		}
		if folder == nil || seen[folder.ID] {
			break
		}
		seen[folder.ID] = true
		path = append(path, PathEntry{ID: folder.ID, Name: folder.Name})

		if folder.ParentID == nil {
			break
		}
		id = *folder.ParentID
	}

	// Reverse to root first
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, nil
}

// DeleteFolder deletes folderID and every descendant folder. Only the folder's
// creator may delete it. Files in the subtree are handled according to the
// configured FolderDeletePolicy. The delete is irreversible.
func (s *MVService) DeleteFolder(ctx context.Context, folderID int64, requester int64) (_ *FolderDeleteResult, err error) {
	ctx, span := startSpan(ctx, "mv.DeleteFolder",
		attribute.Int64("folder.id", folderID),
		attribute.String("folder.delete_policy", string(s.opts.FolderDeletePolicy)),
	)
	defer func() { endSpan(span, err) }()

	folder, err := s.catalog.FindFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	if folder == nil {
		return nil, fmt.Errorf("folder %d: %w", folderID, ErrNotFound)
	}
	if folder.CreatorID != requester {
		return nil, fmt.Errorf("deleting folder %d: %w", folderID, ErrPermissionDenied)
	}

	result, err := s.catalog.DeleteFolderTree(ctx, folderID, s.opts.FolderDeletePolicy)
	if err != nil {
		return nil, fmt.Errorf("deleting folder %d: %w", folderID, err)
	}

	// Rows are gone; blobs left behind here are orphans for the reconciliation sweep.
	for _, key := range result.DeletedKeys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("blob delete failed", "key", key, "error", err)
		}
	}

	s.logger.Info("folder deleted",
		"id", folderID,
		"folders", len(result.FolderIDs),
		"detached_files", result.DetachedFiles,
		"deleted_files", result.DeletedFiles,
	)
	return result, nil
}
