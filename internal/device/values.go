package device

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// AsFloat converts a decoded property value to float64. Numbers may arrive
// as any Go numeric type, json.Number or a numeric string.
func AsFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	case map[string]any:
		// Measurement objects such as {"value": 21.5, "unit": "C"}.
		if inner, ok := n["value"]; ok {
			return AsFloat(inner)
		}
	}
	return 0, fmt.Errorf("%w: %T is not numeric", ErrInvalidValue, v)
}

// AsInt converts a decoded property value to int, rounding to nearest.
func AsInt(v any) (int, error) {
	f, err := AsFloat(v)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

// AsBool converts a decoded property value to bool. Numbers are true when
// non-zero; "on"/"off" strings are accepted.
func AsBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch b {
		case "on", "true", "1":
			return true, nil
		case "off", "false", "0":
			return false, nil
		}
	}
	f, err := AsFloat(v)
	if err != nil {
		return false, fmt.Errorf("%w: %v is not boolean", ErrInvalidValue, v)
	}
	return f != 0, nil
}

// AsHSL converts a decoded {"hue":..,"saturation":..,"lightness":..} object.
func AsHSL(v any) (HSL, error) {
	switch c := v.(type) {
	case HSL:
		return c, nil
	case map[string]any:
		var out HSL
		var err error
		if out.Hue, err = AsFloat(c["hue"]); err != nil {
			return HSL{}, err
		}
		if out.Saturation, err = AsFloat(c["saturation"]); err != nil {
			return HSL{}, err
		}
		if l, ok := c["lightness"]; ok {
			if out.Lightness, err = AsFloat(l); err != nil {
				return HSL{}, err
			}
		}
		return out, nil
	}
	return HSL{}, fmt.Errorf("%w: %T is not a colour", ErrInvalidValue, v)
}
