package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"

	"mediavault/internal/database/migrations"
	"mediavault/internal/model"
	"mediavault/internal/mv"
)

// MemoryPath opens a private in-memory catalog.
const MemoryPath = ":memory:"

// driverName is go-sqlite3 with a casefold(text) SQL function registered on
// every connection. SQLite's own lower() only folds ASCII.
const driverName = "sqlite3_mediavault"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("casefold", foldCase, true)
		},
	})
}

// foldCase applies Unicode case folding. A Caser is not safe for concurrent
// use, so each call gets its own.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

// SQLiteCatalog implements mv.Catalog on SQLite.
type SQLiteCatalog struct {
	db      *sql.DB
	queries *Queries
	path    string
}

// NewSQLiteCatalog opens the catalog at path. Use MemoryPath for an in-memory
// catalog. The schema is not touched; see MigrateUp and CheckMigrations.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteCatalogFromDB(db, path), nil
}

// NewSQLiteCatalogFromDB wraps an existing connection opened with OpenConnection.
func NewSQLiteCatalogFromDB(db *sql.DB, path string) *SQLiteCatalog {
	return &SQLiteCatalog{
		db:      db,
		queries: NewQueries(db),
		path:    path,
	}
}

// OpenConnection opens and configures a SQLite connection pool.
// Foreign keys are enforced on every pooled connection, writers wait up to
// five seconds for the lock, and every transaction starts with BEGIN IMMEDIATE
// so version allocation is serialized.
func OpenConnection(path string) (*sql.DB, error) {
	params := "_foreign_keys=1&_busy_timeout=5000&_txlock=immediate"
	inMemory := path == MemoryPath
	if !inMemory {
		params += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open(driverName, path+"?"+params)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if inMemory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	return db, nil
}

// classify maps SQLite constraint violations onto the service error kinds.
func classify(err error) error {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	switch sqlErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %w", mv.ErrConflict, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %w", mv.ErrNotFound, err)
	case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
		return fmt.Errorf("%w: %w", mv.ErrInvalidInput, err)
	}
	return err
}

// User operations

func (s *SQLiteCatalog) CreateUser(ctx context.Context, name, credentialHash string, createdAt time.Time) (*model.User, error) {
	id, err := s.queries.InsertUser(ctx, name, credentialHash, createdAt)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", classify(err))
	}
	return &model.User{ID: id, Name: name, CredentialHash: credentialHash, CreatedAt: createdAt}, nil
}

func (s *SQLiteCatalog) FindUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return user, nil
}

func (s *SQLiteCatalog) FindUserByName(ctx context.Context, name string) (*model.User, error) {
	user, err := s.queries.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding user by name: %w", err)
	}
	return user, nil
}

func (s *SQLiteCatalog) UpdateUserCredential(ctx context.Context, id int64, credentialHash string) error {
	n, err := s.queries.UpdateUserCredential(ctx, id, credentialHash)
	if err != nil {
		return fmt.Errorf("updating credential: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, mv.ErrNotFound)
	}
	return nil
}

// Folder operations

func (s *SQLiteCatalog) CreateFolder(ctx context.Context, folder *model.Folder) (*model.Folder, error) {
	id, err := s.queries.InsertFolder(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("inserting folder: %w", classify(err))
	}

	created, err := s.queries.GetFolderByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading back folder: %w", err)
	}
	return created, nil
}

func (s *SQLiteCatalog) FindFolder(ctx context.Context, id int64) (*model.Folder, error) {
	folder, err := s.queries.GetFolderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	return folder, nil
}

func (s *SQLiteCatalog) ListSubfolders(ctx context.Context, parentID *int64) ([]*model.Folder, error) {
	folders, err := s.queries.ListFoldersByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing subfolders: %w", err)
	}
	return folders, nil
}

// DeleteFolderTree deletes a folder and its descendants in one transaction.
// Files in the subtree are detached, deleted, or block the delete according to policy.
func (s *SQLiteCatalog) DeleteFolderTree(ctx context.Context, id int64, policy mv.FolderDeletePolicy) (*mv.FolderDeleteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	ids, err := qtx.ListSubtreeFolderIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("collecting subtree: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("folder %d: %w", id, mv.ErrNotFound)
	}

	result := &mv.FolderDeleteResult{FolderIDs: ids}

	switch policy {
	case mv.DeleteReject:
		n, err := qtx.CountSubtreeFiles(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("counting files: %w", err)
		}
		if n > 0 {
			return nil, fmt.Errorf("folder %d contains %d files: %w", id, n, mv.ErrConflict)
		}
	case mv.DeleteCascade:
		keys, err := qtx.ListSubtreeStorageKeys(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("collecting storage keys: %w", err)
		}
		n, err := qtx.DeleteSubtreeFiles(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("deleting files: %w", err)
		}
		result.DeletedFiles = n
		result.DeletedKeys = keys
	case mv.DeleteDetach, "":
		n, err := qtx.DetachSubtreeFiles(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("detaching files: %w", err)
		}
		result.DetachedFiles = n
	default:
		return nil, fmt.Errorf("unknown folder delete policy %q: %w", policy, mv.ErrInvalidInput)
	}

	if _, err := qtx.DeleteSubtreeFolders(ctx, id); err != nil {
		return nil, fmt.Errorf("deleting folders: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return result, nil
}

// File operations

func (s *SQLiteCatalog) CreateFile(ctx context.Context, file *model.File) (*model.File, error) {
	id, err := s.queries.InsertFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("inserting file: %w", classify(err))
	}

	created, err := s.queries.GetFileByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading back file: %w", err)
	}
	return created, nil
}

func (s *SQLiteCatalog) FindFile(ctx context.Context, id int64) (*model.File, error) {
	file, err := s.queries.GetFileByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return file, nil
}

func (s *SQLiteCatalog) ListFilesInFolder(ctx context.Context, folderID *int64) ([]*model.File, error) {
	files, err := s.queries.ListFilesByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing files in folder: %w", err)
	}
	return files, nil
}

func (s *SQLiteCatalog) ListFiles(ctx context.Context, offset, limit int) ([]*model.File, error) {
	files, err := s.queries.ListFiles(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

func (s *SQLiteCatalog) SearchFiles(ctx context.Context, query string, caseSensitive bool) ([]*model.File, error) {
	files, err := s.queries.SearchFilesByName(ctx, query, caseSensitive)
	if err != nil {
		return nil, fmt.Errorf("searching files: %w", err)
	}
	return files, nil
}

func (s *SQLiteCatalog) UpdateFileFolder(ctx context.Context, fileID int64, folderID *int64) error {
	n, err := s.queries.UpdateFileFolder(ctx, fileID, folderID)
	if err != nil {
		return fmt.Errorf("updating file folder: %w", classify(err))
	}
	if n == 0 {
		return fmt.Errorf("file %d: %w", fileID, mv.ErrNotFound)
	}
	return nil
}

// Version operations

// AppendVersion allocates the next version number and makes it current.
// The transaction starts with BEGIN IMMEDIATE, so concurrent appends to the
// same catalog run one after another; the unique (file_id, version_number)
// index catches anything that slips past and surfaces as mv.ErrConflict.
func (s *SQLiteCatalog) AppendVersion(ctx context.Context, version *model.FileVersion) (*model.FileVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	current, err := qtx.GetFileCurrentVersion(ctx, version.FileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file %d: %w", version.FileID, mv.ErrNotFound)
		}
		return nil, fmt.Errorf("reading current version: %w", err)
	}

	highest, err := qtx.GetMaxVersionNumber(ctx, version.FileID)
	if err != nil {
		return nil, fmt.Errorf("reading highest version: %w", err)
	}

	row := *version
	row.VersionNumber = max(current, highest) + 1

	if row.ID, err = qtx.InsertVersion(ctx, &row); err != nil {
		return nil, fmt.Errorf("inserting version: %w", classify(err))
	}
	if _, err := qtx.UpdateFileCurrentVersion(ctx, row.FileID, row.VersionNumber); err != nil {
		return nil, fmt.Errorf("updating current version: %w", err)
	}

	created, err := qtx.GetVersion(ctx, row.FileID, row.VersionNumber)
	if err != nil {
		return nil, fmt.Errorf("reading back version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return created, nil
}

func (s *SQLiteCatalog) FindVersion(ctx context.Context, fileID, versionNumber int64) (*model.FileVersion, error) {
	version, err := s.queries.GetVersion(ctx, fileID, versionNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding version: %w", err)
	}
	return version, nil
}

func (s *SQLiteCatalog) ListVersions(ctx context.Context, fileID int64) ([]*model.FileVersion, error) {
	versions, err := s.queries.ListVersionsByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	return versions, nil
}

// SetCurrentVersion changes the pointer in a single conditional UPDATE so the
// existence check and the write cannot be separated.
func (s *SQLiteCatalog) SetCurrentVersion(ctx context.Context, fileID, versionNumber int64) error {
	n, err := s.queries.RestoreFileVersion(ctx, fileID, versionNumber)
	if err != nil {
		return fmt.Errorf("setting current version: %w", classify(err))
	}
	if n == 0 {
		return fmt.Errorf("version %d of file %d: %w", versionNumber, fileID, mv.ErrNotFound)
	}
	return nil
}

// Storage accounting

func (s *SQLiteCatalog) StorageStats(ctx context.Context) (*model.StorageStats, error) {
	var stats model.StorageStats
	var err error

	stats.FileCount, stats.FileBytes, err = s.queries.SumFileBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("summing file bytes: %w", err)
	}
	stats.VersionCount, stats.VersionBytes, err = s.queries.SumVersionBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("summing version bytes: %w", err)
	}
	stats.TotalBytes = stats.FileBytes + stats.VersionBytes

	return &stats, nil
}

func (s *SQLiteCatalog) StorageKeys(ctx context.Context) ([]string, error) {
	keys, err := s.queries.ListStorageKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing storage keys: %w", err)
	}
	return keys, nil
}

// Maintenance

// Path returns the catalog file path (or MemoryPath).
func (s *SQLiteCatalog) Path() string {
	return s.path
}

// MigrateUp applies pending schema migrations.
func (s *SQLiteCatalog) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the schema is up-to-date.
func (s *SQLiteCatalog) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrationStatus reports the recorded and latest schema versions.
func (s *SQLiteCatalog) MigrationStatus() (*migrations.Status, error) {
	return migrations.ReadStatus(s.db)
}

// Schema returns the CREATE statements of the migrated schema, tables first,
// excluding SQLite internals and the migration bookkeeping table.
func (s *SQLiteCatalog) Schema(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY
		  CASE type
		    WHEN 'table' THEN 1
		    WHEN 'index' THEN 2
		  END,
		  name
	`)
	if err != nil {
		return "", fmt.Errorf("reading schema: %w", err)
	}

	stmts, err := scanStrings(rows)
	if err != nil {
		return "", fmt.Errorf("reading schema: %w", err)
	}
	return strings.Join(stmts, "\n\n") + "\n", nil
}

// BackupTo writes a consistent copy of the catalog to destPath using VACUUM INTO.
func (s *SQLiteCatalog) BackupTo(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up catalog: %w", err)
	}
	return nil
}

// Close closes the catalog connection.
func (s *SQLiteCatalog) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ mv.Catalog = (*SQLiteCatalog)(nil)
