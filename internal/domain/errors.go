// Package domain errors.go contains sentinel errors
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	// ErrNotFound signals an absent record or clip so callers can branch on
	// existence instead of inspecting adapter errors.
	ErrNotFound = errors.New("clipboard not found")

	// ErrBatchIncomplete signals a multi-timestamp lookup where not every
	// requested clip exists; no partial result is returned in that case.
	ErrBatchIncomplete = errors.New("not all requested clips available")

	// ErrInvalidUserID rejects malformed user identities at the delivery
	// boundary.
	ErrInvalidUserID = errors.New("invalid user id")
)
