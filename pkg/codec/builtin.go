package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

var errNotScalar = errors.New("structured value where a scalar is expected")

func registerBuiltins(r *Registry) {
	Register(r, Bool())
	Register(r, String())

	Register(r, Int[int]())
	Register(r, Int[int8]())
	Register(r, Int[int16]())
	Register(r, Int[int32]())
	Register(r, Int[int64]())
	Register(r, Uint[uint]())
	Register(r, Uint[uint8]())
	Register(r, Uint[uint16]())
	Register(r, Uint[uint32]())
	Register(r, Uint[uint64]())
	Register(r, Float[float32]())
	Register(r, Float[float64]())

	Register(r, Duration())
	Register(r, Time())
	Register(r, Bytes())

	Register(r, Slice(String()))
	Register(r, Slice(Int[int]()))
	Register(r, Slice(Float[float64]()))
	Register(r, Object())
}

func isStructured(wire any) bool {
	switch wire.(type) {
	case []any, map[string]any:
		return true
	}
	return false
}

// Bool handles bool. Strings such as "true", "0" and numbers are coerced.
func Bool() Serializer[bool] {
	return Func(
		func(v bool) (any, error) { return v, nil },
		func(wire any) (bool, error) {
			if wire == nil || isStructured(wire) {
				return false, errNotScalar
			}
			if n, ok := wire.(json.Number); ok {
				wire = n.String()
			}
			return cast.ToBoolE(wire)
		},
	)
}

// String handles string. Scalars are converted to their text form; a
// json.Number keeps its literal text.
func String() Serializer[string] {
	return Func(
		func(v string) (any, error) { return v, nil },
		func(wire any) (string, error) {
			switch w := wire.(type) {
			case string:
				return w, nil
			case json.Number:
				return w.String(), nil
			case nil, []any, map[string]any:
				return "", errNotScalar
			}
			return cast.ToStringE(wire)
		},
	)
}

type signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

type float interface {
	~float32 | ~float64
}

// integralFloat rejects floats with a fractional part.
func integralFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return fmt.Errorf("%v is not an integer", f)
	}
	return nil
}

// floatToInt64 converts an integral float, rejecting values outside int64.
func floatToInt64(f float64) (int64, error) {
	if err := integralFloat(f); err != nil {
		return 0, err
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}

// floatToUint64 converts an integral, non-negative float, rejecting values
// outside uint64.
func floatToUint64(f float64) (uint64, error) {
	if err := integralFloat(f); err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("%v is negative", f)
	}
	if f >= math.MaxUint64 {
		return 0, fmt.Errorf("%v overflows uint64", f)
	}
	return uint64(f), nil
}

func toInt64(wire any) (int64, error) {
	switch w := wire.(type) {
	case nil, []any, map[string]any:
		return 0, errNotScalar
	case bool:
		return 0, errors.New("boolean where an integer is expected")
	case json.Number:
		if i, err := w.Int64(); err == nil {
			return i, nil
		}
		f, err := w.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s overflows int64", w)
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(w)
	case float32:
		return floatToInt64(float64(w))
	}
	return cast.ToInt64E(wire)
}

// Int handles signed integer types. Non-integral numbers and values
// outside the range of T are rejected.
func Int[T signed]() Serializer[T] {
	typ := reflect.TypeFor[T]()
	return Func(
		func(v T) (any, error) { return v, nil },
		func(wire any) (T, error) {
			i, err := toInt64(wire)
			if err != nil {
				return 0, err
			}
			if reflect.Zero(typ).OverflowInt(i) {
				return 0, fmt.Errorf("%d overflows %s", i, typ)
			}
			return T(i), nil
		},
	)
}

// Uint handles unsigned integer types.
func Uint[T unsigned]() Serializer[T] {
	typ := reflect.TypeFor[T]()
	return Func(
		func(v T) (any, error) { return v, nil },
		func(wire any) (T, error) {
			var u uint64
			var err error
			switch w := wire.(type) {
			case json.Number:
				if u, err = strconv.ParseUint(w.String(), 10, 64); err != nil {
					f, ferr := w.Float64()
					if ferr != nil {
						return 0, fmt.Errorf("%s overflows uint64", w)
					}
					if u, err = floatToUint64(f); err != nil {
						return 0, err
					}
				}
			case float64:
				if u, err = floatToUint64(w); err != nil {
					return 0, err
				}
			case float32:
				if u, err = floatToUint64(float64(w)); err != nil {
					return 0, err
				}
			case nil, bool, []any, map[string]any:
				return 0, errNotScalar
			default:
				if u, err = cast.ToUint64E(wire); err != nil {
					return 0, err
				}
			}
			if reflect.Zero(typ).OverflowUint(u) {
				return 0, fmt.Errorf("%d overflows %s", u, typ)
			}
			return T(u), nil
		},
	)
}

// Float handles float32 and float64.
func Float[T float]() Serializer[T] {
	typ := reflect.TypeFor[T]()
	return Func(
		func(v T) (any, error) { return v, nil },
		func(wire any) (T, error) {
			var f float64
			switch w := wire.(type) {
			case nil, bool, []any, map[string]any:
				return 0, errNotScalar
			case json.Number:
				var err error
				if f, err = w.Float64(); err != nil {
					return 0, err
				}
			default:
				var err error
				if f, err = cast.ToFloat64E(wire); err != nil {
					return 0, err
				}
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return 0, fmt.Errorf("%v is not a finite number", f)
			}
			// Values that round to the largest float32 are accepted.
			v := T(f)
			if math.IsInf(float64(v), 0) {
				return 0, fmt.Errorf("%v overflows %s", f, typ)
			}
			return v, nil
		},
	)
}

// Duration encodes time.Duration as its string form ("1m30s"). Decoding
// also accepts an integer number of nanoseconds.
func Duration() Serializer[time.Duration] {
	return Func(
		func(v time.Duration) (any, error) { return v.String(), nil },
		func(wire any) (time.Duration, error) {
			if s, ok := wire.(string); ok {
				return time.ParseDuration(s)
			}
			i, err := toInt64(wire)
			if err != nil {
				return 0, err
			}
			return time.Duration(i), nil
		},
	)
}

// Time encodes time.Time as RFC 3339 with nanoseconds.
func Time() Serializer[time.Time] {
	return Func(
		func(v time.Time) (any, error) { return v.Format(time.RFC3339Nano), nil },
		func(wire any) (time.Time, error) {
			s, ok := wire.(string)
			if !ok {
				return time.Time{}, fmt.Errorf("expected an RFC 3339 string, got %T", wire)
			}
			return time.Parse(time.RFC3339Nano, s)
		},
	)
}

// Bytes encodes []byte as standard base64.
func Bytes() Serializer[[]byte] {
	return Func(
		func(v []byte) (any, error) {
			if v == nil {
				return nil, nil
			}
			return base64.StdEncoding.EncodeToString(v), nil
		},
		func(wire any) ([]byte, error) {
			switch w := wire.(type) {
			case nil:
				return nil, nil
			case string:
				return base64.StdEncoding.DecodeString(w)
			}
			return nil, fmt.Errorf("expected a base64 string, got %T", wire)
		},
	)
}

// Object passes JSON objects through unchanged.
func Object() Serializer[map[string]any] {
	return Func(
		func(v map[string]any) (any, error) { return v, nil },
		func(wire any) (map[string]any, error) {
			switch w := wire.(type) {
			case nil:
				return nil, nil
			case map[string]any:
				return w, nil
			}
			return nil, fmt.Errorf("expected an object, got %T", wire)
		},
	)
}
