package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the top of a directory before it is uploaded.
const IgnoreFileName = ".mvignore"

// defaultIgnorePatterns are always applied regardless of config or .mvignore.
var defaultIgnorePatterns = []string{IgnoreFileName}

type ignoreRule struct {
	pattern  string
	anchored bool // contains '/': matched against the relative path
	dirOnly  bool // trailing '/': matches directories only
	negate   bool // leading '!': re-includes an earlier match
}

// IgnoreMatcher decides which entries of a directory upload are skipped.
// Patterns without '/' match the basename at any depth, patterns with '/'
// match the path relative to the upload root, a trailing '/' restricts a
// pattern to directories and a leading '!' re-includes a path. The last
// matching pattern wins.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw pattern lines. Blank lines and lines starting
// with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var rules []ignoreRule
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		var r ignoreRule
		if strings.HasPrefix(raw, "!") {
			r.negate = true
			raw = raw[1:]
		}
		if strings.HasSuffix(raw, "/") {
			r.dirOnly = true
			raw = strings.TrimRight(raw, "/")
		}
		raw = strings.TrimPrefix(raw, "/")
		if raw == "" {
			continue
		}
		r.pattern = raw
		r.anchored = strings.Contains(raw, "/")
		rules = append(rules, r)
	}
	return &IgnoreMatcher{rules: rules}
}

// Match reports whether relativePath, relative to the upload root, is skipped.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	if relativePath == "" || len(m.rules) == 0 {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		target := basename
		if r.anchored {
			target = normalized
		}
		matched, err := filepath.Match(r.pattern, target)
		if err != nil || !matched {
			continue
		}
		ignored = !r.negate
	}
	return ignored
}

// ParseIgnoreFile reads raw pattern lines from path.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
