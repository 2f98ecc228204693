// Package apperr holds the sentinel errors shared across packages.
// Callers wrap them with fmt.Errorf("...: %w", err) and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrClipboard       = errors.New("clipboard unavailable")
	ErrFetch           = errors.New("fetch failed")
)
