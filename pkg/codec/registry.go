package codec

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/aretw0/exposer/pkg/field"
)

// Serializer converts between a native value of type T and a wire value.
// Wire values are JSON-compatible: nil, bool, string, numbers, []any and
// map[string]any (json.Number is accepted on decode).
type Serializer[T any] interface {
	Encode(v T) (any, error)
	Decode(wire any) (T, error)
}

// Func adapts a pair of functions to a Serializer.
func Func[T any](encode func(T) (any, error), decode func(any) (T, error)) Serializer[T] {
	return funcSerializer[T]{enc: encode, dec: decode}
}

type funcSerializer[T any] struct {
	enc func(T) (any, error)
	dec func(any) (T, error)
}

func (f funcSerializer[T]) Encode(v T) (any, error)    { return f.enc(v) }
func (f funcSerializer[T]) Decode(wire any) (T, error) { return f.dec(wire) }

// Codec is a Serializer bound to its reflect.Type, with the type erased.
// Errors returned by Codec are always *CodecError.
type Codec interface {
	Type() reflect.Type
	Encode(v any) (any, error)
	Decode(wire any) (any, error)
}

type bound[T any] struct {
	typ reflect.Type
	s   Serializer[T]
}

func (b bound[T]) Type() reflect.Type { return b.typ }

func (b bound[T]) Encode(v any) (any, error) {
	var typed T
	if v != nil {
		var ok bool
		typed, ok = v.(T)
		if !ok {
			return nil, &CodecError{Type: b.typ, Op: OpEncode, Value: v, Err: fmt.Errorf("value is %T", v)}
		}
	}
	out, err := b.s.Encode(typed)
	if err != nil {
		return nil, &CodecError{Type: b.typ, Op: OpEncode, Value: v, Err: err}
	}
	return out, nil
}

func (b bound[T]) Decode(wire any) (any, error) {
	v, err := b.s.Decode(wire)
	if err != nil {
		return nil, &CodecError{Type: b.typ, Op: OpDecode, Value: wire, Err: err}
	}
	return v, nil
}

// Registry maps exact value types to codecs. It is populated once during
// startup and is read-only after Freeze.
type Registry struct {
	mu     sync.RWMutex
	codecs map[reflect.Type]Codec
	frozen atomic.Bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[reflect.Type]Codec)}
}

// Default returns a registry holding the built-in serializers.
func Default() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

// Register binds s to the type T in r, replacing any previous binding.
// It panics if r is frozen.
func Register[T any](r *Registry, s Serializer[T]) {
	t := reflect.TypeFor[T]()
	r.add(t, bound[T]{typ: t, s: s})
}

// Lookup returns the serializer registered for T.
func Lookup[T any](r *Registry) (Serializer[T], error) {
	c, err := r.Lookup(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	b, ok := c.(bound[T])
	if !ok {
		return nil, &UnsupportedTypeError{Type: reflect.TypeFor[T]()}
	}
	return b.s, nil
}

func (r *Registry) add(t reflect.Type, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		panic(fmt.Sprintf("codec: register %s on a frozen registry", t))
	}
	r.codecs[t] = c
}

// Freeze makes the registry read-only. Lookups after Freeze take no lock.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Lookup returns the codec registered for exactly t.
func (r *Registry) Lookup(t reflect.Type) (Codec, error) {
	var (
		c  Codec
		ok bool
	)
	if r.frozen.Load() {
		c, ok = r.codecs[t]
	} else {
		r.mu.RLock()
		c, ok = r.codecs[t]
		r.mu.RUnlock()
	}
	if !ok {
		return nil, &UnsupportedTypeError{Type: t}
	}
	return c, nil
}

// Encode encodes the current value of f with the codec for its declared type.
func (r *Registry) Encode(f field.Value) (any, error) {
	c, err := r.Lookup(f.Type())
	if err != nil {
		return nil, err
	}
	return c.Encode(f.GetAny())
}

// Decode converts wire into a value of type t.
func (r *Registry) Decode(t reflect.Type, wire any) (any, error) {
	c, err := r.Lookup(t)
	if err != nil {
		return nil, err
	}
	return c.Decode(wire)
}

// Types returns the registered types sorted by name.
func (r *Registry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]reflect.Type, 0, len(r.codecs))
	for t := range r.codecs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].String() < types[j].String()
	})
	return types
}
