// Package patch models partial-update payloads. A Field records whether its
// key was present in the JSON document and whether it was an explicit null,
// so "leave unchanged" and "clear" are never confused.
package patch

import (
	"bytes"
	"encoding/json"

	"github.com/medrec/medrec/internal/platform/apperr"
)

// Field is one optional member of a patch document.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a Field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// UnmarshalJSON is only invoked when the key is present.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON writes the value, or null when unset or cleared. Documents
// that must keep absent keys absent are encoded through Doc.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Present reports whether the field carries a value to apply.
func (f Field[T]) Present() bool { return f.Set && !f.Null }

// Get returns the value and whether it should be applied.
func (f Field[T]) Get() (T, bool) { return f.Value, f.Present() }

// Required rejects an explicit null for a field that cannot be cleared.
func (f Field[T]) Required(name string) error {
	if f.Set && f.Null {
		return apperr.Validation("%s cannot be cleared", name)
	}
	return nil
}

// ApplyTo writes the value into dst when present.
func (f Field[T]) ApplyTo(dst *T) {
	if f.Present() {
		*dst = f.Value
	}
}

// Doc accumulates the present members of a patch document for encoding.
type Doc map[string]interface{}

// Put adds f under name when its key was present; an explicit null stays null.
func Put[T any](d Doc, name string, f Field[T]) {
	switch {
	case !f.Set:
	case f.Null:
		d[name] = nil
	default:
		d[name] = f.Value
	}
}
