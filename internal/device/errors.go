package device

import "errors"

// ErrInvalidValue is returned when a device reports a value of the wrong
// shape for the property.
var ErrInvalidValue = errors.New("device: invalid value")
