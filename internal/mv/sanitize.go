package mv

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxNameBytes    = 255
	maxKeyStemBytes = 64
	maxKeyExtBytes  = 16
	keyTokenLength  = 12
)

// SanitizeName returns a filesystem- and display-safe version of raw.
// Path separators, ".." sequences, characters reserved on common filesystems
// and control characters are replaced with '_'. Leading and trailing spaces
// and dots are removed. The result may be empty.
func SanitizeName(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r == utf8.RuneError:
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case strings.ContainsRune(`/\<>:"|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	name := b.String()
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "_")
	}
	name = strings.Trim(name, " .")
	return truncateUTF8(name, maxNameBytes)
}

// StorageKey derives a collision-free blob key from an uploaded filename.
// The key keeps a sanitized stem and the original extension, and inserts the
// upload time and a random token: "<stem>_<unixnano>_<token><ext>".
func StorageKey(originalName string, now time.Time, random string) string {
	name := SanitizeName(originalName)
	ext := filepath.Ext(name)
	if len(ext) > maxKeyExtBytes || strings.ContainsRune(ext, ' ') {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)
	stem = strings.ReplaceAll(stem, " ", "_")
	stem = truncateUTF8(stem, maxKeyStemBytes)
	if stem == "" {
		stem = "upload"
	}

	token := strings.ReplaceAll(random, "-", "")
	if len(token) > keyTokenLength {
		token = token[:keyTokenLength]
	}

	return fmt.Sprintf("%s_%d_%s%s", stem, now.UnixNano(), token, ext)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
