package binding

import "errors"

// ErrInvalidValue is returned to a host write whose value has the wrong type
// for the binding.
var ErrInvalidValue = errors.New("binding: invalid value")
