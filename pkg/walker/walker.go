package walker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/exposer/pkg/field"
)

// Separator joins path segments.
const Separator = "/"

var (
	// ErrInvalidModel is returned when the root is not a struct or a pointer to one.
	ErrInvalidModel = errors.New("walker: model must be a struct or a pointer to a struct")

	// ErrCycle is matched by CycleError.
	ErrCycle = errors.New("walker: cyclic model graph")

	// ErrDuplicatePath is returned when two exposed fields resolve to the same path.
	ErrDuplicatePath = errors.New("walker: duplicate endpoint path")

	// ErrNotAddressable is returned for Field values embedded by value in a model
	// that was not passed by pointer.
	ErrNotAddressable = errors.New("walker: field is not addressable, pass the model by pointer")
)

// CycleError reports a nested model reachable from itself.
type CycleError struct {
	Path string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("walker: model at %q refers back to one of its ancestors", e.Path)
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// Descriptor is one exposed field discovered in a model graph.
type Descriptor struct {
	// Path is the endpoint path relative to the model, segments joined by "/".
	Path string
	// Name is the last segment of Path.
	Name string
	// Field is the exposed value cell. It is owned by the model graph.
	Field field.Value
	// Exposition is the metadata that marked the field.
	Exposition field.Exposition
}

// Member is any field of a model graph, exposed or not, addressed by its
// structural path.
type Member struct {
	// Segments are the structural names from the root to the field.
	Segments []string
	Field    field.Value
}

// Path returns the joined structural path.
func (m Member) Path() string {
	return strings.Join(m.Segments, Separator)
}

var valueType = reflect.TypeFor[field.Value]()

// Discover walks root depth-first in declaration order and returns a
// descriptor for every exposed Field. The traversal follows the structure
// of the model only, never the values held by Fields.
func Discover(root any) ([]Descriptor, error) {
	var (
		out   []Descriptor
		paths = make(map[string]struct{})
	)

	err := walk(root, func(ancestors []string, name string, f field.Value, tag *field.Exposition, hidden bool) error {
		if hidden {
			return nil
		}
		expo, ok := f.Exposition()
		if !ok {
			if tag == nil {
				return nil
			}
			expo = *tag
		}

		leaf := name
		if override, ok := expo.OverrideName(); ok {
			leaf = override
		}
		path := strings.Join(append(append([]string{}, ancestors...), leaf), Separator)
		if _, dup := paths[path]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicatePath, path)
		}
		paths[path] = struct{}{}

		out = append(out, Descriptor{
			Path:       path,
			Name:       leaf,
			Field:      f,
			Exposition: expo,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Fields returns every Field of root, exposed or not, in the order Discover
// would visit them. A Field tagged expose:"-" is listed like any other
// unexposed Field; a nested model tagged expose:"-" is left out with all of
// its members.
func Fields(root any) ([]Member, error) {
	var out []Member
	err := walk(root, func(ancestors []string, name string, f field.Value, _ *field.Exposition, _ bool) error {
		segments := make([]string, 0, len(ancestors)+1)
		segments = append(segments, ancestors...)
		out = append(out, Member{Segments: append(segments, name), Field: f})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// visitFunc receives every Field member. tag is the expose struct tag, if
// any; hidden marks a member tagged expose:"-".
type visitFunc func(ancestors []string, name string, f field.Value, tag *field.Exposition, hidden bool) error

func walk(root any, fn visitFunc) error {
	v, err := structValue(root)
	if err != nil {
		return err
	}
	seen := make(map[uintptr]struct{})
	if rv := reflect.ValueOf(root); rv.Kind() == reflect.Pointer {
		seen[rv.Pointer()] = struct{}{}
	}
	return walkStruct(v, nil, seen, fn)
}

func structValue(root any) (reflect.Value, error) {
	if root == nil {
		return reflect.Value{}, ErrInvalidModel
	}
	if _, isField := root.(field.Value); isField {
		return reflect.Value{}, fmt.Errorf("%w: got a field (%T)", ErrInvalidModel, root)
	}
	v := reflect.ValueOf(root)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, ErrInvalidModel
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: got %T", ErrInvalidModel, root)
	}
	return v, nil
}

func walkStruct(v reflect.Value, ancestors []string, seen map[uintptr]struct{}, fn visitFunc) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, skip := structuralName(sf)
		if skip {
			continue
		}
		exposeTag, tagged := sf.Tag.Lookup("expose")

		fv := v.Field(i)
		if fv.Kind() == reflect.Interface {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}

		f, isField, err := asField(fv)
		if err != nil {
			return fmt.Errorf("%s: %w", joinPath(ancestors, name), err)
		}
		if isField {
			if f == nil {
				continue
			}
			var tag *field.Exposition
			hidden := tagged && exposeTag == "-"
			if tagged && !hidden {
				tag = &field.Exposition{Name: exposeTag}
			}
			if err := fn(ancestors, name, f, tag, hidden); err != nil {
				return err
			}
			continue
		}

		if tagged && exposeTag == "-" {
			continue
		}

		child, ptr, isModel := asModel(fv)
		if !isModel {
			if tagged {
				return fmt.Errorf("%s: %w", joinPath(ancestors, name), field.ErrInvalidTarget)
			}
			continue
		}
		if tagged {
			// exposition is per Field; a nested model can only be skipped
			return fmt.Errorf("%s: %w", joinPath(ancestors, name), field.ErrInvalidTarget)
		}

		path := append(append([]string{}, ancestors...), name)
		if embeddedInline(sf) {
			path = ancestors
		}
		if ptr != 0 {
			if _, cyclic := seen[ptr]; cyclic {
				return &CycleError{Path: strings.Join(path, Separator)}
			}
			seen[ptr] = struct{}{}
		}
		err = walkStruct(child, path, seen, fn)
		if ptr != 0 {
			delete(seen, ptr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// asField reports whether fv holds a Field, returning nil for nil pointers.
func asField(fv reflect.Value) (field.Value, bool, error) {
	if fv.Type().Implements(valueType) {
		if fv.Kind() == reflect.Pointer && fv.IsNil() {
			return nil, true, nil
		}
		return fv.Interface().(field.Value), true, nil
	}
	if fv.Kind() == reflect.Struct && reflect.PointerTo(fv.Type()).Implements(valueType) {
		if !fv.CanAddr() {
			return nil, true, ErrNotAddressable
		}
		return fv.Addr().Interface().(field.Value), true, nil
	}
	return nil, false, nil
}

// asModel reports whether fv is a nested model, returning its struct value
// and, for pointers, the address used for cycle detection.
func asModel(fv reflect.Value) (reflect.Value, uintptr, bool) {
	switch fv.Kind() {
	case reflect.Struct:
		return fv, 0, true
	case reflect.Pointer:
		if fv.IsNil() || fv.Type().Elem().Kind() != reflect.Struct {
			return reflect.Value{}, 0, false
		}
		return fv.Elem(), fv.Pointer(), true
	}
	return reflect.Value{}, 0, false
}

// embeddedInline reports whether an embedded model contributes its members
// to the parent without adding a path segment.
func embeddedInline(sf reflect.StructField) bool {
	if !sf.Anonymous {
		return false
	}
	if tag, ok := sf.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		return name == ""
	}
	return true
}

// structuralName derives the segment name of a struct field: the json tag
// name when present, otherwise the Go name with a lower-case first letter.
func structuralName(sf reflect.StructField) (string, bool) {
	if tag, ok := sf.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return "", true
		}
		if name != "" {
			return name, false
		}
	}
	return lowerFirst(sf.Name), false
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func joinPath(ancestors []string, name string) string {
	return strings.Join(append(append([]string{}, ancestors...), name), Separator)
}
