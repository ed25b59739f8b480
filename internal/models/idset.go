package models

import (
	"encoding/json"
	"sort"
)

// IDSet is a set of member ids. It serializes as a sorted JSON array.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids, dropping duplicates.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id. The set must be non-nil.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in lexicographic order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent, non-nil copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// SubsetOf reports whether every id in s is also in other.
func (s IDSet) SubsetOf(other IDSet) bool {
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array.
func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of ids.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
