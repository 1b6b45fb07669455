// Package common defines shared constants and sentinel errors used across
// the vault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Access-control errors.
	ErrForbidden = errors.New("forbidden")

	// Storage-integrity errors. ErrBlobMissing means a document record
	// outlived its blob; it should never occur if upload atomicity held.
	ErrBlobMissing      = errors.New("blob missing")
	ErrCorruptedContent = errors.New("corrupted content")

	// Request validation errors.
	ErrValidation = errors.New("validation error")

	// Auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
