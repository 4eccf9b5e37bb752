package model

import "time"

// User is an account that owns folders and files.
type User struct {
	ID             int64
	Name           string // Unique display name
	CredentialHash string // bcrypt hash
	CreatedAt      time.Time
}

// Folder is a node in the folder tree. A nil ParentID marks a root-level folder.
type Folder struct {
	ID        int64
	Name      string
	ParentID    *int64
	CreatorID   int64
	CreatorName string
	CreatedAt   time.Time
}

// Blob describes one stored upload in the blob store.
type Blob struct {
	StorageName string // Blob store key
	Size        int64
	MimeType    string
	Checksum    string // BLAKE3, hex encoded
}

// File is a logical document, stable across versions.
//
// Initial is the version-1 upload recorded on the file row itself and is never
// refreshed. Current is resolved from the version table for CurrentVersion and
// is what downloads and listings should use.
type File struct {
	ID             int64
	OriginalName   string // Human filename
	FolderID       *int64
	UploaderID     int64
	UploaderName   string
	UploadedAt     time.Time
	CurrentVersion int64
	Initial        Blob
	Current        Blob
}

// FileVersion is an immutable record of a later upload for a File.
// Version numbers start at 2; version 1 is the file row's own upload.
type FileVersion struct {
	ID            int64
	FileID        int64
	VersionNumber int64
	Blob          Blob
	UploaderID    int64
	UploaderName  string
	UploadedAt    time.Time
}

// StorageStats summarises bytes retained in the blob store.
// Every file row owns one blob (its version 1) and every version row owns one more.
type StorageStats struct {
	TotalBytes   int64
	FileBytes    int64
	VersionBytes int64
	FileCount    int64
	VersionCount int64
}
