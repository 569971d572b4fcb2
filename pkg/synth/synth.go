package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/exposer/pkg/codec"
	"github.com/aretw0/exposer/pkg/field"
	"github.com/aretw0/exposer/pkg/snapshot"
	"github.com/aretw0/exposer/pkg/walker"
)

// ErrInvalidName is returned for an empty or malformed model name.
var ErrInvalidName = errors.New("synth: invalid model name")

// FieldEndpoint serves one exposed Field.
type FieldEndpoint struct {
	// Model is the registered name of the owning model.
	Model string
	// Path is the discovered path relative to the model.
	Path string
	// Route is Model and Path joined: the full endpoint path.
	Route      string
	Field      field.Value
	Codec      codec.Codec
	Exposition field.Exposition
}

// Read returns the encoded current value.
func (e *FieldEndpoint) Read(ctx context.Context) (any, error) {
	return e.Codec.Encode(e.Field.GetAny())
}

// ReadWrite reads the field when value is nil. Otherwise value is unpacked,
// decoded and assigned before the fresh value is read back. A decode failure
// leaves the field untouched.
func (e *FieldEndpoint) ReadWrite(ctx context.Context, value *string) (any, error) {
	if value == nil {
		return e.Read(ctx)
	}
	return e.Write(ctx, Unpack(*value))
}

// Write decodes a structured wire value, assigns it and returns the fresh
// encoded value.
func (e *FieldEndpoint) Write(ctx context.Context, wire any) (any, error) {
	v, err := e.Codec.Decode(wire)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.Field.SetAny(v); err != nil {
		return nil, &codec.CodecError{Type: e.Field.Type(), Op: codec.OpDecode, Value: wire, Err: err}
	}
	return e.Read(ctx)
}

// ModelEndpoint serves a whole registered model.
type ModelEndpoint struct {
	Name     string
	Model    any
	Registry *codec.Registry
}

// Read serializes every Field of the model.
func (e *ModelEndpoint) Read(ctx context.Context) (map[string]any, error) {
	return snapshot.Serialize(e.Model, e.Registry)
}

// Write applies data to the model and returns the post-update snapshot.
// Per-field failures are returned as a *snapshot.ApplyError alongside the
// snapshot; they do not prevent the other keys from being applied.
func (e *ModelEndpoint) Write(ctx context.Context, data map[string]any) (map[string]any, error) {
	applyErr := snapshot.Apply(e.Model, e.Registry, data)

	var ae *snapshot.ApplyError
	if applyErr != nil && !errors.As(applyErr, &ae) {
		return nil, applyErr
	}

	snap, err := e.Read(ctx)
	if err != nil {
		return nil, err
	}
	return snap, applyErr
}

// Routes is the endpoint set synthesized for one model.
type Routes struct {
	Prefix string
	Model  *ModelEndpoint
	Fields []*FieldEndpoint

	byPath map[string]*FieldEndpoint
}

// Field returns the endpoint at path, relative to Prefix.
func (r *Routes) Field(path string) (*FieldEndpoint, bool) {
	e, ok := r.byPath[strings.Trim(path, walker.Separator)]
	return e, ok
}

// Synthesize discovers the exposed fields of model and binds a codec to
// each. Every Field of the model must have a registered serializer, exposed
// or not, since the model endpoint serializes all of them.
func Synthesize(name string, model any, reg *codec.Registry) (*Routes, error) {
	prefix := strings.Trim(name, walker.Separator)
	if prefix == "" || strings.Contains(prefix, "//") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	members, err := walker.Fields(model)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if _, err := reg.Lookup(m.Field.Type()); err != nil {
			return nil, fmt.Errorf("synth: %s/%s: %w", prefix, m.Path(), err)
		}
	}

	descriptors, err := walker.Discover(model)
	if err != nil {
		return nil, err
	}

	routes := &Routes{
		Prefix: prefix,
		Model:  &ModelEndpoint{Name: prefix, Model: model, Registry: reg},
		Fields: make([]*FieldEndpoint, 0, len(descriptors)),
		byPath: make(map[string]*FieldEndpoint, len(descriptors)),
	}
	for _, d := range descriptors {
		c, err := reg.Lookup(d.Field.Type())
		if err != nil {
			return nil, fmt.Errorf("synth: %s/%s: %w", prefix, d.Path, err)
		}
		ep := &FieldEndpoint{
			Model:      prefix,
			Path:       d.Path,
			Route:      prefix + walker.Separator + d.Path,
			Field:      d.Field,
			Codec:      c,
			Exposition: d.Exposition,
		}
		routes.Fields = append(routes.Fields, ep)
		routes.byPath[d.Path] = ep
	}
	return routes, nil
}
