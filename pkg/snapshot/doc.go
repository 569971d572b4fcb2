// Package snapshot serializes a whole model graph to nested objects and
// applies partial updates back to it, field by field.
package snapshot
