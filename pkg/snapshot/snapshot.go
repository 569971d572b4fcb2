package snapshot

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/exposer/pkg/codec"
	"github.com/aretw0/exposer/pkg/field"
	"github.com/aretw0/exposer/pkg/walker"
)

// FieldFailure is a single key of an Apply payload that could not be applied.
type FieldFailure struct {
	Path string
	Err  error
}

// ApplyError collects every failure of an Apply call. Keys that did not
// fail were applied.
type ApplyError struct {
	Failures []FieldFailure
}

func (e *ApplyError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Path, f.Err)
	}
	return fmt.Sprintf("snapshot: %d field(s) not applied: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *ApplyError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Serialize encodes every Field of model, exposed or not, into nested
// objects keyed by structural name.
func Serialize(model any, reg *codec.Registry) (map[string]any, error) {
	members, err := walker.Fields(model)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	for _, m := range members {
		wire, err := reg.Encode(m.Field)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %s: %w", m.Path(), err)
		}
		node := out
		for _, seg := range m.Segments[:len(m.Segments)-1] {
			next, ok := node[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[seg] = next
			}
			node = next
		}
		node[m.Segments[len(m.Segments)-1]] = wire
	}
	return out, nil
}

// Apply writes data into model in place. Keys are matched by structural
// name, nested objects descend into nested models, and unknown keys are
// ignored. Every key is attempted; failures are returned together as an
// *ApplyError and never mutate the Field they target.
func Apply(model any, reg *codec.Registry, data map[string]any) error {
	members, err := walker.Fields(model)
	if err != nil {
		return err
	}

	idx := newIndex(members)
	var failures []FieldFailure
	idx.apply(reg, nil, data, &failures)

	if len(failures) > 0 {
		return &ApplyError{Failures: failures}
	}
	return nil
}

type index struct {
	fields map[string]field.Value
	models map[string]struct{}
}

func newIndex(members []walker.Member) *index {
	idx := &index{
		fields: make(map[string]field.Value, len(members)),
		models: make(map[string]struct{}),
	}
	for _, m := range members {
		idx.fields[m.Path()] = m.Field
		for i := 1; i < len(m.Segments); i++ {
			idx.models[strings.Join(m.Segments[:i], walker.Separator)] = struct{}{}
		}
	}
	return idx
}

func (idx *index) apply(reg *codec.Registry, prefix []string, data map[string]any, failures *[]FieldFailure) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		segments := append(append([]string{}, prefix...), key)
		path := strings.Join(segments, walker.Separator)
		value := data[key]

		if f, ok := idx.fields[path]; ok {
			if err := assign(reg, f, value); err != nil {
				*failures = append(*failures, FieldFailure{Path: path, Err: err})
			}
			continue
		}

		if _, ok := idx.models[path]; ok {
			nested, isObject := value.(map[string]any)
			if !isObject {
				*failures = append(*failures, FieldFailure{
					Path: path,
					Err:  errors.New("expected an object for a nested model"),
				})
				continue
			}
			idx.apply(reg, segments, nested, failures)
		}
		// unknown keys are ignored
	}
}

func assign(reg *codec.Registry, f field.Value, wire any) error {
	v, err := reg.Decode(f.Type(), wire)
	if err != nil {
		return err
	}
	return f.SetAny(v)
}
