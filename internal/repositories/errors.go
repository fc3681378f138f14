package repositories

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotPending is returned when deciding an order request that already left pending.
	ErrNotPending = errors.New("order request is not pending")
)
