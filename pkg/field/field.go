package field

import (
	"fmt"
	"reflect"
	"sync"
)

// Value is the type-erased view of a Field used by the walker, the codec
// registry and the route synthesizer.
type Value interface {
	// Type returns the declared value type. It never changes.
	Type() reflect.Type
	// Exposition returns the exposition metadata and whether the field is exposed.
	Exposition() (Exposition, bool)
	// GetAny returns the current value.
	GetAny() any
	// SetAny replaces the current value. v must be assignable to Type().
	SetAny(v any) error
	// Subscribe registers a type-erased change listener.
	Subscribe(fn func(old, new any)) (cancel func())
}

// Field is an observable, mutex-guarded value cell.
type Field[T any] struct {
	// wmu orders writers so listeners observe changes in the order they
	// were applied. mu guards value alone.
	wmu   sync.Mutex
	mu    sync.RWMutex
	value T
	typ   reflect.Type
	expo  *Exposition

	lmu       sync.Mutex
	listeners map[int]func(old, new T)
	nextID    int
}

var _ Value = (*Field[int])(nil)

// Option configures a Field at declaration time.
type Option func(*options)

type options struct {
	expo *Exposition
}

// Expose marks the field for network exposition. An optional name overrides
// the structural name of the field in its parent model.
func Expose(name ...string) Option {
	return func(o *options) {
		o.expo = newExposition(name)
	}
}

// New creates a Field holding initial.
func New[T any](initial T, opts ...Option) *Field[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Field[T]{
		value: initial,
		typ:   reflect.TypeFor[T](),
		expo:  o.expo,
	}
}

// Expose marks f for exposition and returns it, for use in composite literals.
func (f *Field[T]) Expose(name ...string) *Field[T] {
	f.expo = newExposition(name)
	return f
}

// Get returns the current value.
func (f *Field[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Set replaces the current value and notifies listeners.
//
// Listeners run on the caller's goroutine after the value lock is released,
// so they may call Get. Concurrent Sets are serialized through notification:
// a Set returns only after its listeners have run, and listeners see changes
// in the order they were applied, the last one matching Get. A listener must
// not call Set on the field that invoked it.
func (f *Field[T]) Set(v T) {
	f.wmu.Lock()
	defer f.wmu.Unlock()

	f.mu.Lock()
	old := f.value
	f.value = v
	f.mu.Unlock()

	f.notify(old, v)
}

// OnChange registers fn to be called on every Set.
func (f *Field[T]) OnChange(fn func(old, new T)) (cancel func()) {
	f.lmu.Lock()
	defer f.lmu.Unlock()

	if f.listeners == nil {
		f.listeners = make(map[int]func(old, new T))
	}
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn

	return func() {
		f.lmu.Lock()
		defer f.lmu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *Field[T]) notify(old, v T) {
	f.lmu.Lock()
	fns := make([]func(old, new T), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.lmu.Unlock()

	for _, fn := range fns {
		fn(old, v)
	}
}

// Type returns the declared value type of the field.
func (f *Field[T]) Type() reflect.Type {
	if f.typ == nil {
		// zero Field declared without New
		return reflect.TypeFor[T]()
	}
	return f.typ
}

// Exposition returns the field's exposition metadata, if any.
func (f *Field[T]) Exposition() (Exposition, bool) {
	if f.expo == nil {
		return Exposition{}, false
	}
	return *f.expo, true
}

// GetAny implements Value.
func (f *Field[T]) GetAny() any {
	return f.Get()
}

// SetAny implements Value.
func (f *Field[T]) SetAny(v any) error {
	if v == nil {
		var zero T
		if reflect.TypeFor[T]().Kind() == reflect.Interface || isNillable(f.Type()) {
			f.Set(zero)
			return nil
		}
		return fmt.Errorf("%w: nil is not a valid %s", ErrTypeMismatch, f.Type())
	}
	typed, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: cannot assign %T to %s", ErrTypeMismatch, v, f.Type())
	}
	f.Set(typed)
	return nil
}

// Subscribe implements Value.
func (f *Field[T]) Subscribe(fn func(old, new any)) (cancel func()) {
	return f.OnChange(func(old, v T) {
		fn(old, v)
	})
}

func isNillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
