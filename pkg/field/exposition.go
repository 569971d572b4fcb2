package field

import "errors"

var (
	// ErrTypeMismatch is returned by SetAny when the value does not match the declared type.
	ErrTypeMismatch = errors.New("field: type mismatch")

	// ErrInvalidTarget is returned when exposition metadata is attached to something
	// that is not a Field.
	ErrInvalidTarget = errors.New("field: exposition target is not a field")
)

// Exposition marks a Field as network-addressable.
type Exposition struct {
	// Name overrides the structural name of the field. Empty means no override.
	Name string
}

// OverrideName returns the override name, if one was given.
func (e Exposition) OverrideName() (string, bool) {
	return e.Name, e.Name != ""
}

func newExposition(name []string) *Exposition {
	e := &Exposition{}
	if len(name) > 0 {
		e.Name = name[0]
	}
	return e
}
