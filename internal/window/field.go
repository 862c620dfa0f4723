package window

import "fmt"

type fieldState uint8

const (
	fieldUnset fieldState = iota
	fieldExcluded
	fieldValue
)

// Field is a tri-state filter criterion: unset (no constraint), excluded
// (the property must not exist, so nothing matches) or a concrete value.
// The zero value is unset.
type Field[T comparable] struct {
	state fieldState
	value T
}

// Unset returns a field that places no constraint.
func Unset[T comparable]() Field[T] { return Field[T]{} }

// Excluded returns a field that matches nothing.
func Excluded[T comparable]() Field[T] { return Field[T]{state: fieldExcluded} }

// Is returns a field constrained to v.
func Is[T comparable](v T) Field[T] { return Field[T]{state: fieldValue, value: v} }

// IsUnset reports whether the field places no constraint.
func (f Field[T]) IsUnset() bool { return f.state == fieldUnset }

// IsExcluded reports whether the field carries the excluded sentinel.
func (f Field[T]) IsExcluded() bool { return f.state == fieldExcluded }

// IsSet reports whether the field holds a value.
func (f Field[T]) IsSet() bool { return f.state == fieldValue }

// Get returns the value and whether there is one.
func (f Field[T]) Get() (T, bool) { return f.value, f.state == fieldValue }

// Or returns f unless it is unset, in which case prior is returned.
func (f Field[T]) Or(prior Field[T]) Field[T] {
	if f.state == fieldUnset {
		return prior
	}
	return f
}

func (f Field[T]) String() string {
	switch f.state {
	case fieldExcluded:
		return "<excluded>"
	case fieldValue:
		return fmt.Sprint(f.value)
	}
	return "<unset>"
}
