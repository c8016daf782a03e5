package model

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnsupportedValue = errors.New("model: unsupported attribute value")

// ValueKind names the scalar kind of an attribute value.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindBool   ValueKind = "bool"
)

// ParseValueKind validates a kind name from a schema file.
func ParseValueKind(raw string) (ValueKind, bool) {
	switch ValueKind(raw) {
	case KindString, KindInt, KindFloat, KindBool:
		return ValueKind(raw), true
	default:
		return "", false
	}
}

// NormalizeValue converts v into one of the canonical attribute value types:
// string, int64, float64, bool or a homogeneous slice of those. Every sized
// int and uint widens to int64 (uint64 values above MaxInt64 are rejected),
// float32 widens to float64, and []int, []int32, []float32 and []any
// convert element-wise.
func NormalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string, int64, float64, bool:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return fromUnsigned(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return fromUnsigned(x)
	case float32:
		return float64(x), nil
	case []string:
		return cloneSlice(x), nil
	case []int64:
		return cloneSlice(x), nil
	case []float64:
		return cloneSlice(x), nil
	case []bool:
		return cloneSlice(x), nil
	case []int:
		return widen[int, int64](x), nil
	case []int32:
		return widen[int32, int64](x), nil
	case []float32:
		return widen[float32, float64](x), nil
	case []any:
		return normalizeList(x)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// KindOf reports the scalar kind of a normalized value and whether it is a list.
func KindOf(v any) (kind ValueKind, many bool, ok bool) {
	switch v.(type) {
	case string:
		return KindString, false, true
	case int64:
		return KindInt, false, true
	case float64:
		return KindFloat, false, true
	case bool:
		return KindBool, false, true
	case []string:
		return KindString, true, true
	case []int64:
		return KindInt, true, true
	case []float64:
		return KindFloat, true, true
	case []bool:
		return KindBool, true, true
	default:
		return "", false, false
	}
}

func normalizeList(items []any) (any, error) {
	if len(items) == 0 {
		return []string{}, nil
	}
	first, err := NormalizeValue(items[0])
	if err != nil {
		return nil, err
	}
	kind, many, _ := KindOf(first)
	if many {
		return nil, fmt.Errorf("%w: nested list", ErrUnsupportedValue)
	}
	switch kind {
	case KindString:
		return collect[string](items)
	case KindInt:
		return collect[int64](items)
	case KindFloat:
		return collect[float64](items)
	default:
		return collect[bool](items)
	}
}

func collect[T string | int64 | float64 | bool](items []any) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, item := range items {
		v, err := NormalizeValue(item)
		if err != nil {
			return nil, err
		}
		typed, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("%w: mixed list element %d (%T)", ErrUnsupportedValue, i, item)
		}
		out = append(out, typed)
	}
	return out, nil
}

func fromUnsigned(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, u)
	}
	return int64(u), nil
}

func widen[From int | int32 | float32, To int64 | float64](in []From) []To {
	out := make([]To, len(in))
	for i, item := range in {
		out[i] = To(item)
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
