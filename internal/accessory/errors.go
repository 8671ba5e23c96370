package accessory

import "errors"

var (
	// ErrReadOnly is returned by Set on a characteristic without a set handler.
	ErrReadOnly = errors.New("accessory: characteristic is read-only")

	// ErrInvalidValue is returned when a host value cannot be coerced to the
	// characteristic's format or is out of range.
	ErrInvalidValue = errors.New("accessory: invalid value")

	// ErrNotFound is returned when a service or characteristic does not exist.
	ErrNotFound = errors.New("accessory: not found")
)
