package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mediavault/internal/config"
	"mediavault/internal/model"
	"mediavault/internal/mv"
)

var tracer = otel.Tracer("mediavault/ingest")

// Pipeline moves uploads into a BlobStore and hands them to the catalog.
// It never holds a whole upload in memory: bytes stream through a size limit
// and a BLAKE3 hasher straight into the store.
type Pipeline struct {
	blobs   mv.BlobStore
	logger  mv.Logger
	clock   mv.Clock
	ids     mv.IDGenerator
	maxSize int64
	allowed []string
}

var _ mv.Ingestor = (*Pipeline)(nil)

// NewPipeline creates a pipeline accepting uploads up to maxSize bytes whose
// media type matches one of allowed ("video/mp4", "video/*" or "*/*").
func NewPipeline(blobs mv.BlobStore, logger mv.Logger, clock mv.Clock, ids mv.IDGenerator, maxSize int64, allowed []string) (*Pipeline, error) {
	if maxSize <= 0 {
		maxSize = config.DefaultMaxUploadSize
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("at least one allowed media type is required")
	}

	patterns := make([]string, 0, len(allowed))
	for _, a := range allowed {
		p := strings.ToLower(strings.TrimSpace(a))
		if p != "*" && p != "*/*" && !strings.Contains(p, "/") {
			return nil, fmt.Errorf("invalid media type pattern: %q", a)
		}
		patterns = append(patterns, p)
	}

	return &Pipeline{
		blobs:   blobs,
		logger:  logger,
		clock:   clock,
		ids:     ids,
		maxSize: maxSize,
		allowed: patterns,
	}, nil
}

// MaxSize returns the configured upload limit in bytes.
func (p *Pipeline) MaxSize() int64 {
	return p.maxSize
}

// Ingest runs an upload through Validated, Persisted and Registered.
// If register fails the persisted blob is deleted again, best-effort.
func (p *Pipeline) Ingest(ctx context.Context, up *mv.Upload, register mv.RegisterFunc) (_ *model.Blob, err error) {
	ctx, span := tracer.Start(ctx, "ingest.Ingest")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	p.logger.Debug("upload received", "name", up.OriginalName, "type", up.ContentType, "declared_size", up.Size)

	// Validated
	mediaType, err := p.validate(up)
	if err != nil {
		p.reject("validate", up, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("upload.media_type", mediaType))
	p.logger.Debug("upload validated", "name", up.OriginalName, "type", mediaType)

	// Persisted
	key := mv.StorageKey(up.OriginalName, p.clock.Now(), p.ids.New())
	span.SetAttributes(attribute.String("upload.key", key))

	hasher := blake3.New()
	limited := &limitReader{r: up.Body, remaining: p.maxSize}
	n, err := p.blobs.Put(ctx, key, io.TeeReader(limited, hasher))
	if err != nil {
		err = classifyPutError(key, err)
		p.reject("persist", up, err)
		return nil, err
	}
	if up.Size >= 0 && n != up.Size {
		p.discard(ctx, key)
		err = fmt.Errorf("declared %d bytes, received %d: %w", up.Size, n, mv.ErrInvalidInput)
		p.reject("persist", up, err)
		return nil, err
	}

	blob := &model.Blob{
		StorageName: key,
		Size:        n,
		MimeType:    mediaType,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}
	span.SetAttributes(attribute.Int64("upload.size", n))
	p.logger.Debug("upload persisted", "key", key, "size", n)

	// Registered
	if err := register(ctx, blob); err != nil {
		p.discard(ctx, key)
		p.reject("register", up, err)
		return nil, fmt.Errorf("registering upload: %w", err)
	}

	p.logger.Info("upload registered", "key", key, "size", n, "type", mediaType)
	return blob, nil
}

// validate checks the declared size and media type before any byte is written.
func (p *Pipeline) validate(up *mv.Upload) (string, error) {
	if up.Body == nil {
		return "", fmt.Errorf("upload has no body: %w", mv.ErrInvalidInput)
	}
	if up.Size > p.maxSize {
		return "", fmt.Errorf("declared %d bytes exceeds limit of %d: %w", up.Size, p.maxSize, mv.ErrPayloadTooLarge)
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = typeByName(up.OriginalName)
	}
	if contentType == "" {
		return "", fmt.Errorf("no media type for %q: %w", up.OriginalName, mv.ErrUnsupportedMedia)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("media type %q: %w", contentType, mv.ErrUnsupportedMedia)
	}
	if !p.allows(mediaType) {
		return "", fmt.Errorf("media type %q: %w", mediaType, mv.ErrUnsupportedMedia)
	}
	return mediaType, nil
}

func (p *Pipeline) allows(mediaType string) bool {
	for _, pattern := range p.allowed {
		switch {
		case pattern == "*" || pattern == "*/*":
			return true
		case strings.HasSuffix(pattern, "/*"):
			if strings.HasPrefix(mediaType, strings.TrimSuffix(pattern, "*")) {
				return true
			}
		case pattern == mediaType:
			return true
		}
	}
	return false
}

// discard removes a blob that must not survive. Failure leaves an orphan for
// the reconciliation sweep, so it is logged and otherwise ignored.
func (p *Pipeline) discard(ctx context.Context, key string) {
	if err := p.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		p.logger.Warn("orphaned blob cleanup failed", "key", key, "error", err)
	}
}

func (p *Pipeline) reject(stage string, up *mv.Upload, err error) {
	p.logger.Warn("upload rejected", "stage", stage, "name", up.OriginalName, "error", err)
}

// classifyPutError keeps the kinds a caller can act on and reports everything
// else as a storage failure.
func classifyPutError(key string, err error) error {
	switch {
	case errors.Is(err, mv.ErrPayloadTooLarge),
		errors.Is(err, mv.ErrAccessDenied),
		errors.Is(err, mv.ErrInvalidInput),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("persisting %s: %w", key, err)
	}
	return fmt.Errorf("persisting %s: %w: %w", key, mv.ErrStorageFailure, err)
}

// limitReader fails with mv.ErrPayloadTooLarge once more than remaining bytes
// have been read. Unlike io.LimitReader it reports the overflow instead of
// silently truncating.
type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, mv.ErrPayloadTooLarge
	}
	// Read one byte past the limit so an overflow is detected.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, mv.ErrPayloadTooLarge
	}
	return n, err
}
