package core

import (
	"encoding/json"
	"sort"
)

// PeriodSet is an immutable set of month keys. Every mutator returns a new set
// and leaves the receiver untouched.
type PeriodSet struct {
	keys map[MonthKey]struct{}
}

func NewPeriodSet(keys ...MonthKey) PeriodSet {
	s := PeriodSet{keys: make(map[MonthKey]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

func (s PeriodSet) Contains(k MonthKey) bool {
	_, ok := s.keys[k]
	return ok
}

func (s PeriodSet) Len() int {
	return len(s.keys)
}

func (s PeriodSet) With(k MonthKey) PeriodSet {
	if s.Contains(k) {
		return s
	}
	return NewPeriodSet(append(s.Keys(), k)...)
}

func (s PeriodSet) Without(k MonthKey) PeriodSet {
	if !s.Contains(k) {
		return s
	}
	out := make([]MonthKey, 0, len(s.keys))
	for key := range s.keys {
		if key != k {
			out = append(out, key)
		}
	}
	return NewPeriodSet(out...)
}

// Toggle adds k when absent and removes it when present.
func (s PeriodSet) Toggle(k MonthKey) PeriodSet {
	if s.Contains(k) {
		return s.Without(k)
	}
	return s.With(k)
}

// Keys returns the members in ascending order.
func (s PeriodSet) Keys() []MonthKey {
	out := make([]MonthKey, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s PeriodSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Keys())
}

func (s *PeriodSet) UnmarshalJSON(data []byte) error {
	var keys []MonthKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*s = NewPeriodSet(keys...)
	return nil
}
