package predicates

import "errors"

var (
	// ErrInvalidParams is returned when a constraint's parameters do not fit its predicate
	ErrInvalidParams = errors.New("invalid predicate parameters")

	// ErrDuplicatePredicate is returned when a name is registered twice
	ErrDuplicatePredicate = errors.New("predicate already registered")
)
