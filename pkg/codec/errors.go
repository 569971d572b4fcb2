package codec

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrUnsupportedType is matched by UnsupportedTypeError.
	ErrUnsupportedType = errors.New("codec: unsupported type")

	// ErrCodec is matched by CodecError.
	ErrCodec = errors.New("codec: conversion failed")
)

// Op names the direction of a failed conversion.
type Op string

const (
	OpEncode Op = "encode"
	OpDecode Op = "decode"
)

// UnsupportedTypeError reports that no serializer is registered for Type.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("codec: no serializer registered for %s", typeName(e.Type))
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// CodecError reports a failed encode or decode. The target Field is never
// mutated when a CodecError is returned.
type CodecError struct {
	Type  reflect.Type
	Op    Op
	Value any
	Err   error
}

func (e *CodecError) Error() string {
	if e.Op == OpDecode {
		return fmt.Sprintf("codec: cannot decode %#v as %s: %v", e.Value, typeName(e.Type), e.Err)
	}
	return fmt.Sprintf("codec: cannot encode %s: %v", typeName(e.Type), e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func (e *CodecError) Is(target error) bool {
	return target == ErrCodec
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
