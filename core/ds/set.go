// Package ds provides generic data structures shared by the store packages.
package ds

import (
	"encoding/json"
	"fmt"
	"slices"
)

type StringSet = Set[string]

// Set is an ordered set with O(1) membership tests that iterates in insertion
// order. Command label filters are kept in a Set so that history criteria
// serialize deterministically.
//
// A nil *Set behaves as an empty set for all read methods.
type Set[T comparable] struct {
	items map[T]struct{}
	order []T
}

// NewSet creates a new set with the given items.
func NewSet[T comparable](items ...T) *Set[T] {
	set := &Set[T]{items: map[T]struct{}{}, order: make([]T, 0, len(items))}
	set.Add(items...)
	return set
}

// NewStringSet creates a new string set with the given items.
func NewStringSet(items ...string) *StringSet {
	return NewSet(items...)
}

func (s *Set[T]) String() string {
	return fmt.Sprintf("%v", s.Values())
}

// Add adds the given items, skipping those already present. (mutates)
func (s *Set[T]) Add(items ...T) {
	if s.items == nil {
		s.items = map[T]struct{}{}
	}
	for _, item := range items {
		if _, ok := s.items[item]; ok {
			continue
		}
		s.items[item] = struct{}{}
		s.order = append(s.order, item)
	}
}

// Remove removes the given items. (mutates)
func (s *Set[T]) Remove(items ...T) {
	if s.Len() == 0 || len(items) == 0 {
		return
	}
	for _, item := range items {
		delete(s.items, item)
	}
	s.order = slices.DeleteFunc(s.order, func(v T) bool {
		_, ok := s.items[v]
		return !ok
	})
}

// Contains returns true if v is present in the set.
func (s *Set[T]) Contains(v T) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[v]
	return ok
}

// ContainsAny returns true if at least one element of other is present in s.
func (s *Set[T]) ContainsAny(other *Set[T]) bool {
	for _, v := range other.Values() {
		if s.Contains(v) {
			return true
		}
	}
	return false
}

// Len returns the number of elements in the set.
func (s *Set[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// IsEmpty returns true if the set contains no elements.
func (s *Set[T]) IsEmpty() bool { return s.Len() == 0 }

// Values returns a copy of the elements in insertion order.
func (s *Set[T]) Values() []T {
	if s == nil {
		return nil
	}
	return slices.Clone(s.order)
}

// Copy returns a new set with the same elements and order.
func (s *Set[T]) Copy() *Set[T] {
	return NewSet(s.Values()...)
}

// MarshalJSON serializes the set as an ordered JSON array.
func (s Set[T]) MarshalJSON() ([]byte, error) {
	if s.order == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.order)
}

// UnmarshalJSON deserializes a JSON array into the set, replacing its content.
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = map[T]struct{}{}
	s.order = nil
	s.Add(items...)
	return nil
}
