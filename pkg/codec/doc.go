/*
Package codec binds value types to serializers that convert between native
Go values and JSON-compatible wire values.

Lookups match the exact reflect.Type of a Field's declared value type. There
is no fallback to an underlying kind or an implemented interface, so a
named type such as `type Level int` needs its own registration:

	reg := codec.Default()
	codec.Register(reg, codec.Int[Level]())
	codec.Register(reg, codec.Struct[Color]())
	reg.Freeze()

Every failure is returned as a *CodecError or an *UnsupportedTypeError.
*/
package codec
