package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when the referenced record
	// does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrPermissionDenied is returned when a non-admin caller attempts an
	// admin-only operation.
	ErrPermissionDenied = errors.New("permission denied")
)
