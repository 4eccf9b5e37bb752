package mv

import "errors"

// Error kinds surfaced to callers. Every layer wraps these with context, so
// callers should test with errors.Is rather than comparing messages.
var (
	// ErrInvalidInput reports malformed identifiers, empty names or a size mismatch.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound reports a missing user, folder, file, version or blob.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a duplicate sibling folder name or a lost version race.
	ErrConflict = errors.New("conflict")

	// ErrPermissionDenied reports a mutation attempted by someone other than the owner.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnsupportedMedia reports an upload whose content type is not allowed.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrPayloadTooLarge reports an upload above the configured maximum size.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrStorageFailure reports a blob store I/O failure.
	ErrStorageFailure = errors.New("storage failure")

	// ErrAccessDenied reports a storage key that resolves outside the storage root.
	ErrAccessDenied = errors.New("access denied")
)
