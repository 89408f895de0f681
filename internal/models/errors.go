package models

import "errors"

// Sentinel errors shared across services and handlers. Services wrap them
// with context (fmt.Errorf + %w) so callers can classify with errors.Is.
var (
	// ErrNotFound reports that a user, definition or progress row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState reports an operation rejected by a lifecycle guard,
	// such as claiming an incomplete mission or double-claiming a reward.
	ErrInvalidState = errors.New("invalid state")
)
