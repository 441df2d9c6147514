// Package common defines sentinel errors shared by the everkeep client and
// server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Storage backend could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Request validation errors.
	ErrMissingOwnerKey = errors.New("missing owner key")
	ErrInvalidState    = errors.New("invalid state")
	ErrPayloadTooLarge = errors.New("payload too large")

	ErrRateLimited = errors.New("rate limited")
)
