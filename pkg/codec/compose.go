package codec

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Slice builds a serializer for []E from a serializer for E.
func Slice[E any](elem Serializer[E]) Serializer[[]E] {
	return Func(
		func(v []E) (any, error) {
			if v == nil {
				return nil, nil
			}
			out := make([]any, len(v))
			for i, e := range v {
				w, err := elem.Encode(e)
				if err != nil {
					return nil, fmt.Errorf("index %d: %w", i, err)
				}
				out[i] = w
			}
			return out, nil
		},
		func(wire any) ([]E, error) {
			if wire == nil {
				return nil, nil
			}
			items, ok := wire.([]any)
			if !ok {
				return nil, fmt.Errorf("expected an array, got %T", wire)
			}
			out := make([]E, len(items))
			for i, item := range items {
				e, err := elem.Decode(item)
				if err != nil {
					return nil, fmt.Errorf("index %d: %w", i, err)
				}
				out[i] = e
			}
			return out, nil
		},
	)
}

// Enum builds a serializer for a string-backed type restricted to allowed.
func Enum[T ~string](allowed ...T) Serializer[T] {
	return Func(
		func(v T) (any, error) { return string(v), nil },
		func(wire any) (T, error) {
			s, ok := wire.(string)
			if !ok {
				return "", fmt.Errorf("expected a string, got %T", wire)
			}
			if !slices.Contains(allowed, T(s)) {
				return "", fmt.Errorf("%q is not one of %v", s, allowed)
			}
			return T(s), nil
		},
	)
}

// Struct builds a serializer for a struct type T. Structs are encoded as
// objects keyed by their json tag names, with time.Time and time.Duration
// members in the same text forms as their built-in serializers. Decoding is
// weakly typed and always starts from the zero value of T.
func Struct[T any]() Serializer[T] {
	typ := reflect.TypeFor[T]()
	return Func(
		func(v T) (any, error) {
			if typ.Kind() != reflect.Struct {
				return nil, fmt.Errorf("%s is not a struct", typ)
			}
			out := map[string]any{}
			encodeFields(reflect.ValueOf(v), out)
			return out, nil
		},
		func(wire any) (T, error) {
			var out T
			if _, ok := wire.(map[string]any); !ok {
				return out, fmt.Errorf("expected an object, got %T", wire)
			}
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				TagName:          "json",
				WeaklyTypedInput: true,
				Result:           &out,
				DecodeHook: mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
				),
			})
			if err != nil {
				return out, err
			}
			if err := dec.Decode(wire); err != nil {
				var zero T
				return zero, err
			}
			return out, nil
		},
	)
}

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
)

// encodeFields writes the exported members of struct v into out, keyed the
// way the Struct decoder reads them back.
func encodeFields(v reflect.Value, out map[string]any) {
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if sf.Type.Kind() == reflect.Struct && slices.Contains(strings.Split(opts, ","), "squash") {
			encodeFields(v.Field(i), out)
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out[name] = encodeValue(v.Field(i))
	}
}

func encodeValue(v reflect.Value) any {
	switch v.Type() {
	case timeType:
		return v.Interface().(time.Time).Format(time.RFC3339Nano)
	case durationType:
		return time.Duration(v.Int()).String()
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return encodeValue(v.Elem())
	case reflect.Struct:
		out := map[string]any{}
		encodeFields(v, out)
		return out
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes()
		}
		return encodeItems(v)
	case reflect.Array:
		return encodeItems(v)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = encodeValue(iter.Value())
		}
		return out
	}
	return v.Interface()
}

func encodeItems(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = encodeValue(v.Index(i))
	}
	return out
}
