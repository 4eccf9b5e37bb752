package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mediavault/internal/mv"
)

const tempPrefix = ".tmp-"

// FileSystemVault stores each blob as a flat file directly under root.
// root is canonicalized once at construction; every call re-resolves the
// key's path, following symlinks, and refuses anything that lands outside it.
type FileSystemVault struct {
	root string
}

// NewFileSystemVault creates the root directory if needed and returns a vault over it.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving blob root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving blob root: %w", err)
	}

	return &FileSystemVault{root: canonical}, nil
}

// Root returns the canonical storage root.
func (v *FileSystemVault) Root() string {
	return v.root
}

// resolve maps key to a path inside root or fails with mv.ErrAccessDenied.
func (v *FileSystemVault) resolve(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}

	path := filepath.Join(v.root, key)
	if !v.contains(path) {
		return "", fmt.Errorf("storage key %q: %w", key, mv.ErrAccessDenied)
	}

	// An existing entry may be a symlink planted inside root.
	resolved, err := filepath.EvalSymlinks(path)
	switch {
	case err == nil:
		if !v.contains(resolved) {
			return "", fmt.Errorf("storage key %q resolves outside root: %w", key, mv.ErrAccessDenied)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Not written yet; the lexical check above is all there is.
	default:
		return "", fmt.Errorf("resolving %q: %w", key, err)
	}

	return path, nil
}

func (v *FileSystemVault) contains(path string) bool {
	rel, err := filepath.Rel(v.root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Put writes r to a temp file in root and renames it into place, so a
// partial upload is never visible under key. An existing key is a conflict.
func (v *FileSystemVault) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	destPath, err := v.resolve(key)
	if err != nil {
		return 0, err
	}
	if _, err := os.Lstat(destPath); err == nil {
		return 0, fmt.Errorf("storage key %q already exists: %w", key, mv.ErrConflict)
	}

	tmpFile, err := os.CreateTemp(v.root, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		tmpFile.Close()
		return 0, fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return 0, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return written, nil
}

// Get opens the blob under key.
func (v *FileSystemVault) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := v.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %q: %w", key, mv.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat blob: %w", err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("blob %q is not a regular file: %w", key, mv.ErrNotFound)
	}

	return f, nil
}

// Delete removes the blob under key. A missing key is not an error.
func (v *FileSystemVault) Delete(ctx context.Context, key string) error {
	path, err := v.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Exists reports whether a blob is stored under key.
func (v *FileSystemVault) Exists(ctx context.Context, key string) (bool, error) {
	path, err := v.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}
	return true, nil
}

// List returns the keys of all stored blobs, skipping in-flight temp files.
func (v *FileSystemVault) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("listing blob root: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

// ValidateSetup verifies that the root is a writable directory.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("blob root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob root is not a directory: %s", v.root)
	}

	probe, err := os.CreateTemp(v.root, tempPrefix+"probe-*")
	if err != nil {
		return fmt.Errorf("blob root not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

var _ mv.BlobStore = (*FileSystemVault)(nil)
