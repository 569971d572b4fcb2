/*
Package field provides the observable value cell exposed by the engine.

A Field is declared with its value type and, optionally, exposition metadata:

	type Device struct {
		Count *field.Field[int]    // structural only
		Label *field.Field[string] // exposed as "name"
	}

	d := &Device{
		Count: field.New(0, field.Expose()),
		Label: field.New("lamp").Expose("name"),
	}

Reads and writes on the same Field are serialized by a lock owned by the
Field. Listeners registered with OnChange run after the lock is released,
one Set at a time, so they observe changes in the order they were applied.
*/
package field
