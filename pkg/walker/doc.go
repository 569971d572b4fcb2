/*
Package walker discovers the Fields of a model graph.

A model is a struct (usually passed by pointer) whose exported members are
Fields or nested models. Nested models extend the path with their
structural name; embedded models are inlined. The structural name of a
member is its json tag name, or its Go name with a lower-case first letter.

Exposition is opt-in, either on the Field itself (field.Expose) or with an
`expose` struct tag on a Field member:

	type Sensor struct {
		Temperature *field.Field[float64] `expose:"temp"`
		Raw         *field.Field[[]byte]
	}

The tag `expose:"-"` keeps a Field unexposed even when the Field carries
its own exposition. It still belongs to the model, so Fields lists it and
whole-model snapshots include it. On a nested model the same tag removes
the whole subtree from both.

Model graphs are expected to be trees. A pointer that leads back to one of
its ancestors fails with a *CycleError; shared subtrees are allowed.
*/
package walker
