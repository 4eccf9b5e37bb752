package mv

import (
	"context"
	"fmt"
	"time"

	"mediavault/internal/model"
)

// FolderDeletePolicy decides what happens to files inside a deleted folder subtree.
type FolderDeletePolicy string

const (
	// DeleteDetach moves contained files to root level.
	DeleteDetach FolderDeletePolicy = "detach"
	// DeleteCascade deletes contained files together with their versions.
	DeleteCascade FolderDeletePolicy = "cascade"
	// DeleteReject refuses to delete a subtree that still contains files.
	DeleteReject FolderDeletePolicy = "reject"
)

// ParseFolderDeletePolicy validates a configured policy name. Empty means detach.
func ParseFolderDeletePolicy(s string) (FolderDeletePolicy, error) {
	switch FolderDeletePolicy(s) {
	case "", DeleteDetach:
		return DeleteDetach, nil
	case DeleteCascade, DeleteReject:
		return FolderDeletePolicy(s), nil
	default:
		return "", fmt.Errorf("unknown folder delete policy: %q", s)
	}
}

// FolderDeleteResult reports what a subtree delete removed.
type FolderDeleteResult struct {
	FolderIDs     []int64  // Deleted folders, the requested one first
	DetachedFiles int64    // Files moved to root level (detach policy)
	DeletedFiles  int64    // Files removed (cascade policy)
	DeletedKeys   []string // Blob keys no longer referenced (cascade policy)
}

// Catalog is the relational record of users, folders, files and versions.
// It is the single source of truth for which version is current and where a
// file's bytes live. Find* methods return (nil, nil) when the row is absent.
// Constraint violations surface as ErrConflict (uniqueness) or ErrNotFound
// (a referenced row is missing).
type Catalog interface {
	// User operations

	CreateUser(ctx context.Context, name, credentialHash string, createdAt time.Time) (*model.User, error)
	FindUser(ctx context.Context, id int64) (*model.User, error)
	FindUserByName(ctx context.Context, name string) (*model.User, error)
	// UpdateUserCredential replaces a user's credential hash.
	UpdateUserCredential(ctx context.Context, id int64, credentialHash string) error

	// Folder operations

	// CreateFolder inserts a folder. The (name, parent) uniqueness check is
	// left to the catalog's unique index so concurrent creators cannot both win.
	CreateFolder(ctx context.Context, folder *model.Folder) (*model.Folder, error)
	FindFolder(ctx context.Context, id int64) (*model.Folder, error)
	// ListSubfolders returns direct children of parentID (root level when nil), ordered by name.
	ListSubfolders(ctx context.Context, parentID *int64) ([]*model.Folder, error)
	// DeleteFolderTree deletes a folder and all descendants in one transaction,
	// applying policy to contained files.
	DeleteFolderTree(ctx context.Context, id int64, policy FolderDeletePolicy) (*FolderDeleteResult, error)

	// File operations

	// CreateFile inserts a file with CurrentVersion 1 from its Initial blob.
	CreateFile(ctx context.Context, file *model.File) (*model.File, error)
	FindFile(ctx context.Context, id int64) (*model.File, error)
	// ListFilesInFolder returns files directly in folderID (root level when nil), newest first.
	ListFilesInFolder(ctx context.Context, folderID *int64) ([]*model.File, error)
	// ListFiles returns all files, newest first.
	ListFiles(ctx context.Context, offset, limit int) ([]*model.File, error)
	// SearchFiles returns files whose original name contains query, newest first.
	SearchFiles(ctx context.Context, query string, caseSensitive bool) ([]*model.File, error)
	// UpdateFileFolder changes only the file's folder reference.
	UpdateFileFolder(ctx context.Context, fileID int64, folderID *int64) error

	// Version operations

	// AppendVersion allocates the next version number for version.FileID as
	// max(existing, current) + 1, inserts the row and makes it current, all in
	// one serialized transaction.
	AppendVersion(ctx context.Context, version *model.FileVersion) (*model.FileVersion, error)
	FindVersion(ctx context.Context, fileID, versionNumber int64) (*model.FileVersion, error)
	// ListVersions returns the explicit version rows of a file, oldest first.
	ListVersions(ctx context.Context, fileID int64) ([]*model.FileVersion, error)
	// SetCurrentVersion points the file at versionNumber, which must be 1 or an
	// existing version row; otherwise it fails with ErrNotFound.
	SetCurrentVersion(ctx context.Context, fileID, versionNumber int64) error

	// Storage accounting

	StorageStats(ctx context.Context) (*model.StorageStats, error)
	// StorageKeys returns every blob key referenced by a file or version row.
	StorageKeys(ctx context.Context) ([]string, error)

	// Close closes the catalog connection.
	Close() error
}
