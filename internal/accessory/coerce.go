package accessory

import (
	"fmt"

	"github.com/nerrad567/gray-logic-miio/internal/device"
)

// Coerce converts a host-supplied value, typically decoded JSON, to the Go
// type used for format f (bool, int, float64 or string) and checks it
// against props.
func Coerce(f Format, props Props, v any) (any, error) {
	switch f {
	case FormatBool:
		b, err := device.AsBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return b, nil
	case FormatInt:
		n, err := device.AsInt(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if err := checkRange(props, float64(n)); err != nil {
			return nil, err
		}
		return n, nil
	case FormatFloat:
		n, err := device.AsFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if err := checkRange(props, n); err != nil {
			return nil, err
		}
		return n, nil
	default:
		return fmt.Sprint(v), nil
	}
}

func checkRange(p Props, n float64) error {
	if p.bounded() && (n < p.Min || n > p.Max) {
		return fmt.Errorf("%w: %v outside [%v, %v]", ErrInvalidValue, n, p.Min, p.Max)
	}
	return nil
}
