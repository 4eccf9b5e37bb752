package database

import (
	"context"
	"database/sql"
	"time"

	"mediavault/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the catalog's SQL statements. Single-row getters return
// sql.ErrNoRows when nothing matches.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries that runs every statement inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type scanner interface {
	Scan(dest ...any) error
}

// Users

const insertUser = `
INSERT INTO users (name, credential_hash, created_at) VALUES (?, ?, ?)
`

func (q *Queries) InsertUser(ctx context.Context, name, credentialHash string, createdAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertUser, name, credentialHash, createdAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const userColumns = `SELECT id, name, credential_hash, created_at FROM users`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, userColumns+` WHERE id = ?`, id))
}

func (q *Queries) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, userColumns+` WHERE name = ?`, name))
}

func (q *Queries) UpdateUserCredential(ctx context.Context, id int64, credentialHash string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE users SET credential_hash = ? WHERE id = ?`, credentialHash, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.CredentialHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Folders

const insertFolder = `
INSERT INTO folders (name, parent_id, creator_id, created_at) VALUES (?, ?, ?, ?)
`

func (q *Queries) InsertFolder(ctx context.Context, f *model.Folder) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertFolder, f.Name, nullID(f.ParentID), f.CreatorID, f.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const folderColumns = `
SELECT fo.id, fo.name, fo.parent_id, fo.creator_id, u.name, fo.created_at
FROM folders fo
JOIN users u ON u.id = fo.creator_id`

func (q *Queries) GetFolderByID(ctx context.Context, id int64) (*model.Folder, error) {
	return scanFolder(q.db.QueryRowContext(ctx, folderColumns+` WHERE fo.id = ?`, id))
}

// ListFoldersByParent matches root-level folders when parentID is nil.
func (q *Queries) ListFoldersByParent(ctx context.Context, parentID *int64) ([]*model.Folder, error) {
	rows, err := q.db.QueryContext(ctx, folderColumns+` WHERE fo.parent_id IS ? ORDER BY fo.name, fo.id`, nullID(parentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*model.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func scanFolder(row scanner) (*model.Folder, error) {
	var f model.Folder
	var parent sql.NullInt64
	if err := row.Scan(&f.ID, &f.Name, &parent, &f.CreatorID, &f.CreatorName, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.ParentID = idPtr(parent)
	return &f, nil
}

// subtree selects a folder and every descendant. UNION (not UNION ALL) stops
// the recursion on a parent cycle.
const subtree = `
WITH RECURSIVE subtree(id) AS (
    SELECT id FROM folders WHERE id = ?
    UNION
    SELECT f.id FROM folders f JOIN subtree s ON f.parent_id = s.id
)
`

func (q *Queries) ListSubtreeFolderIDs(ctx context.Context, rootID int64) ([]int64, error) {
	// The root sorts first so callers can report it first.
	rows, err := q.db.QueryContext(ctx, subtree+`SELECT id FROM subtree ORDER BY id = ? DESC, id`, rootID, rootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *Queries) CountSubtreeFiles(ctx context.Context, rootID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		subtree+`SELECT COUNT(*) FROM files WHERE folder_id IN (SELECT id FROM subtree)`, rootID,
	).Scan(&n)
	return n, err
}

func (q *Queries) DetachSubtreeFiles(ctx context.Context, rootID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		subtree+`UPDATE files SET folder_id = NULL WHERE folder_id IN (SELECT id FROM subtree)`, rootID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListSubtreeStorageKeys returns the blob keys of every file and version in the subtree.
func (q *Queries) ListSubtreeStorageKeys(ctx context.Context, rootID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, subtree+`
SELECT f.storage_name FROM files f WHERE f.folder_id IN (SELECT id FROM subtree)
UNION ALL
SELECT v.storage_name FROM file_versions v JOIN files f ON f.id = v.file_id
WHERE f.folder_id IN (SELECT id FROM subtree)`, rootID)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// DeleteSubtreeFiles removes the files in the subtree; version rows follow by cascade.
func (q *Queries) DeleteSubtreeFiles(ctx context.Context, rootID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		subtree+`DELETE FROM files WHERE folder_id IN (SELECT id FROM subtree)`, rootID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteSubtreeFolders(ctx context.Context, rootID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		subtree+`DELETE FROM folders WHERE id IN (SELECT id FROM subtree)`, rootID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Files

const insertFile = `
INSERT INTO files (original_name, storage_name, size, mime_type, checksum, folder_id, uploader_id, uploaded_at, current_version)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
`

func (q *Queries) InsertFile(ctx context.Context, f *model.File) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertFile,
		f.OriginalName,
		f.Initial.StorageName,
		f.Initial.Size,
		f.Initial.MimeType,
		f.Initial.Checksum,
		nullID(f.FolderID),
		f.UploaderID,
		f.UploadedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// fileSelect resolves the current version's blob with a left join; a NULL
// join means version 1, described by the files row itself.
const fileSelect = `
SELECT f.id, f.original_name, f.folder_id, f.uploader_id, u.name, f.uploaded_at, f.current_version,
       f.storage_name, f.size, f.mime_type, f.checksum,
       v.storage_name, v.size, v.mime_type, v.checksum
FROM files f
JOIN users u ON u.id = f.uploader_id
LEFT JOIN file_versions v ON v.file_id = f.id AND v.version_number = f.current_version
`

const newestFirst = ` ORDER BY f.uploaded_at DESC, f.id DESC`

func (q *Queries) GetFileByID(ctx context.Context, id int64) (*model.File, error) {
	return scanFile(q.db.QueryRowContext(ctx, fileSelect+` WHERE f.id = ?`, id))
}

// ListFilesByFolder matches root-level files when folderID is nil.
func (q *Queries) ListFilesByFolder(ctx context.Context, folderID *int64) ([]*model.File, error) {
	return q.queryFiles(ctx, fileSelect+` WHERE f.folder_id IS ?`+newestFirst, nullID(folderID))
}

func (q *Queries) ListFiles(ctx context.Context, offset, limit int) ([]*model.File, error) {
	return q.queryFiles(ctx, fileSelect+newestFirst+` LIMIT ? OFFSET ?`, limit, offset)
}

func (q *Queries) SearchFilesByName(ctx context.Context, query string, caseSensitive bool) ([]*model.File, error) {
	// instr matches the query literally; LIKE would treat % and _ as wildcards.
	where := ` WHERE instr(casefold(f.original_name), casefold(?)) > 0`
	if caseSensitive {
		where = ` WHERE instr(f.original_name, ?) > 0`
	}
	return q.queryFiles(ctx, fileSelect+where+newestFirst, query)
}

func (q *Queries) UpdateFileFolder(ctx context.Context, fileID int64, folderID *int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE files SET folder_id = ? WHERE id = ?`, nullID(folderID), fileID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetFileCurrentVersion(ctx context.Context, fileID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT current_version FROM files WHERE id = ?`, fileID).Scan(&n)
	return n, err
}

func (q *Queries) UpdateFileCurrentVersion(ctx context.Context, fileID, versionNumber int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE files SET current_version = ? WHERE id = ?`, versionNumber, fileID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RestoreFileVersion points the file at versionNumber only if that version
// exists. Zero rows affected means the file or the version is missing.
func (q *Queries) RestoreFileVersion(ctx context.Context, fileID, versionNumber int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
UPDATE files SET current_version = ?
WHERE id = ?
  AND (? = 1 OR EXISTS (SELECT 1 FROM file_versions WHERE file_id = ? AND version_number = ?))`,
		versionNumber, fileID, versionNumber, fileID, versionNumber)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) queryFiles(ctx context.Context, query string, args ...any) ([]*model.File, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func scanFile(row scanner) (*model.File, error) {
	var f model.File
	var folder sql.NullInt64
	var curName, curMime, curSum sql.NullString
	var curSize sql.NullInt64

	err := row.Scan(
		&f.ID, &f.OriginalName, &folder, &f.UploaderID, &f.UploaderName, &f.UploadedAt, &f.CurrentVersion,
		&f.Initial.StorageName, &f.Initial.Size, &f.Initial.MimeType, &f.Initial.Checksum,
		&curName, &curSize, &curMime, &curSum,
	)
	if err != nil {
		return nil, err
	}

	f.FolderID = idPtr(folder)
	f.Current = f.Initial
	if curName.Valid {
		f.Current = model.Blob{
			StorageName: curName.String,
			Size:        curSize.Int64,
			MimeType:    curMime.String,
			Checksum:    curSum.String,
		}
	}
	return &f, nil
}

// Versions

const insertVersion = `
INSERT INTO file_versions (file_id, version_number, storage_name, size, mime_type, checksum, uploader_id, uploaded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertVersion(ctx context.Context, v *model.FileVersion) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertVersion,
		v.FileID,
		v.VersionNumber,
		v.Blob.StorageName,
		v.Blob.Size,
		v.Blob.MimeType,
		v.Blob.Checksum,
		v.UploaderID,
		v.UploadedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetMaxVersionNumber returns 1 when the file has no version rows.
func (q *Queries) GetMaxVersionNumber(ctx context.Context, fileID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 1) FROM file_versions WHERE file_id = ?`, fileID,
	).Scan(&n)
	return n, err
}

const versionSelect = `
SELECT v.id, v.file_id, v.version_number, v.storage_name, v.size, v.mime_type, v.checksum,
       v.uploader_id, u.name, v.uploaded_at
FROM file_versions v
JOIN users u ON u.id = v.uploader_id
`

func (q *Queries) GetVersion(ctx context.Context, fileID, versionNumber int64) (*model.FileVersion, error) {
	return scanVersion(q.db.QueryRowContext(ctx,
		versionSelect+` WHERE v.file_id = ? AND v.version_number = ?`, fileID, versionNumber))
}

func (q *Queries) ListVersionsByFile(ctx context.Context, fileID int64) ([]*model.FileVersion, error) {
	rows, err := q.db.QueryContext(ctx, versionSelect+` WHERE v.file_id = ? ORDER BY v.version_number`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*model.FileVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func scanVersion(row scanner) (*model.FileVersion, error) {
	var v model.FileVersion
	err := row.Scan(
		&v.ID, &v.FileID, &v.VersionNumber,
		&v.Blob.StorageName, &v.Blob.Size, &v.Blob.MimeType, &v.Blob.Checksum,
		&v.UploaderID, &v.UploaderName, &v.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Storage accounting

func (q *Queries) SumFileBytes(ctx context.Context) (count, bytes int64, err error) {
	err = q.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).Scan(&count, &bytes)
	return count, bytes, err
}

func (q *Queries) SumVersionBytes(ctx context.Context) (count, bytes int64, err error) {
	err = q.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM file_versions`).Scan(&count, &bytes)
	return count, bytes, err
}

func (q *Queries) ListStorageKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT storage_name FROM files UNION SELECT storage_name FROM file_versions ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	id := n.Int64
	return &id
}
