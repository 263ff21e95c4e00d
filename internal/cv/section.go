package cv

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Section is an optional resume section. An absent section is hidden and
// offers an "add section" control; a present section is shown even when it
// holds no entries.
type Section[T any] struct {
	items   []T
	present bool
}

// Absent returns a hidden section.
func Absent[T any]() Section[T] {
	return Section[T]{}
}

// Present returns a visible section holding items.
func Present[T any](items ...T) Section[T] {
	out := make([]T, len(items))
	copy(out, items)
	return Section[T]{items: out, present: true}
}

// IsPresent reports whether the section is shown.
func (s Section[T]) IsPresent() bool {
	return s.present
}

// Items returns a copy of the entries. Absent sections return nil.
func (s Section[T]) Items() []T {
	if !s.present {
		return nil
	}
	return slices.Clone(s.items)
}

// Len returns the number of entries.
func (s Section[T]) Len() int {
	return len(s.items)
}

// MarshalJSON encodes an absent section as null and a present one as an array.
func (s Section[T]) MarshalJSON() ([]byte, error) {
	if !s.present {
		return []byte("null"), nil
	}
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON decodes null as absent and any array as present.
func (s *Section[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Section[T]{}
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	*s = Section[T]{items: items, present: true}
	return nil
}
