// Package common defines shared constants and sentinel errors used across
// the photosafe client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Generic flow-control errors.
	ErrInternal        = errors.New("internal error")
	ErrUploadCancelled = errors.New("upload cancelled")

	// Integrity errors. Both are fatal for the affected file and are never
	// retried: a failed MAC means corrupted or tampered ciphertext, and a
	// missing ETag means the object store cannot vouch for the part we just
	// wrote.
	ErrCryptoFailure = errors.New("stream authentication failed")
	ErrETagMissing   = errors.New("etag missing in storage response")

	// Backend resource/session errors, surfaced directly to the caller.
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	ErrSessionExpired       = errors.New("session expired")

	// Per-file classification errors.
	ErrFileTooLarge       = errors.New("file too large")
	ErrUnsupportedFile    = errors.New("unsupported file type")
	ErrThumbnailGenFailed = errors.New("thumbnail generation failed")
)
