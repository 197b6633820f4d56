package models

import "errors"

// Errors returned by record stores.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record state conflict")

	// ErrExceedsAvailable is returned when an allocation would draw more
	// than what is left of its savings record.
	ErrExceedsAvailable = errors.New("amount exceeds available balance")
)
