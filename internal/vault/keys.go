package vault

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"mediavault/internal/mv"
)

// checkKey rejects keys that could address anything but a single object
// directly under the store root. Every backend calls it before touching storage.
func checkKey(key string) error {
	if key == "" || strings.ContainsRune(key, 0) {
		return fmt.Errorf("storage key %q: %w", key, mv.ErrInvalidInput)
	}
	if key == "." || key == ".." || strings.ContainsAny(key, `/\`) || filepath.IsAbs(key) || filepath.VolumeName(key) != "" {
		return fmt.Errorf("storage key %q: %w", key, mv.ErrAccessDenied)
	}
	return nil
}

// ctxReader stops a long copy once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
