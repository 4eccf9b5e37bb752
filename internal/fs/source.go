package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Source is a local file or directory offered for upload.
type Source struct {
	Path    string // absolute
	RelPath string // relative to the directory a walk started from
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Name returns the base name used as the uploaded file's original name.
func (s *Source) Name() string {
	return filepath.Base(s.Path)
}

// LocalSources reads upload sources from the host filesystem.
type LocalSources struct {
	ignore []string
}

// NewLocalSources creates a reader that skips ignore patterns, plus those in
// a directory's .mvignore, when walking a directory.
func NewLocalSources(ignore []string) *LocalSources {
	return &LocalSources{ignore: ignore}
}

// Resolve makes rawPath absolute and checks it is a regular file or directory.
func (m *LocalSources) Resolve(rawPath string) (*Source, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeDevice != 0:
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	case mode&os.ModeNamedPipe != 0:
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	case mode&os.ModeSocket != 0:
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return newSource(absPath, filepath.Base(absPath), info), nil
}

// Open opens a file source for reading.
func (m *LocalSources) Open(src *Source) (io.ReadCloser, error) {
	if src.IsDir {
		return nil, fmt.Errorf("cannot open directory as file: %s", src.Path)
	}
	return os.Open(src.Path)
}

// FindFiles returns the regular files under dir in lexical order. Ignored
// files are skipped, as are ignored directories and everything below them.
func (m *LocalSources) FindFiles(dir *Source, recursive bool) ([]*Source, error) {
	if !dir.IsDir {
		return nil, fmt.Errorf("path is not a directory: %s", dir.Path)
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(dir.Path, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := append(append(append([]string{}, defaultIgnorePatterns...), m.ignore...), filePatterns...)
	matcher := NewIgnoreMatcher(patterns)

	var sources []*Source
	err = filepath.WalkDir(dir.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir.Path {
			return nil
		}

		rel, err := filepath.Rel(dir.Path, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive || matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Match(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		sources = append(sources, newSource(p, rel, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return sources, nil
}

func newSource(path, rel string, info fs.FileInfo) *Source {
	return &Source{
		Path:    path,
		RelPath: rel,
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}
