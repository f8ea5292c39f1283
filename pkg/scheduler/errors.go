package scheduler

import "errors"

// Load-time errors. A solve that returns one of these produced no Solution.
var (
	// ErrInvalidRange is returned when the requested range has start >= end
	ErrInvalidRange = errors.New("invalid date range")

	// ErrDanglingReference is returned when an id points at no known entity
	ErrDanglingReference = errors.New("dangling reference")

	// ErrInvalidEntity is returned for structurally invalid entities
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidConfig is returned for unusable solver configuration
	ErrInvalidConfig = errors.New("invalid solver configuration")
)
