package pricing

import "errors"

var (
	// ErrCategoryNotFound is returned when a forced category name is
	// not present in the registry.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrInvalidState marks usage errors: an operation was called on a
	// context whose state does not allow it.
	ErrInvalidState = errors.New("invalid calculation state")

	// ErrInvalidTransition marks an attempt to move the state machine
	// along an edge that does not exist.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidQuantity is returned by the calculator for zero or
	// negative quantity, weight or unit price.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrMissingRate is returned when a route has no usable logistics
	// rate or an exchange-rate factor is absent.
	ErrMissingRate = errors.New("missing rate")
)
