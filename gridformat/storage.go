package gridformat

import (
	"fmt"
	"maps"
	"slices"
)

// FieldStorage maps names to fields. Setting an existing name replaces
// the previous field. The zero value is ready to use.
type FieldStorage struct {
	fields map[string]Field
}

// Set stores f under name.
func (s *FieldStorage) Set(name string, f Field) {
	if s.fields == nil {
		s.fields = make(map[string]Field)
	}
	s.fields[name] = f
}

// Get returns the field stored under name.
func (s *FieldStorage) Get(name string) (Field, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: no field named %q", ErrValue, name)
	}
	return f, nil
}

// Has reports whether a field is stored under name.
func (s *FieldStorage) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Pop removes and returns the field stored under name.
func (s *FieldStorage) Pop(name string) (Field, error) {
	f, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	delete(s.fields, name)
	return f, nil
}

// Names returns the stored names in sorted order.
func (s *FieldStorage) Names() []string {
	return slices.Sorted(maps.Keys(s.fields))
}

// Len returns the number of stored fields.
func (s *FieldStorage) Len() int {
	return len(s.fields)
}

// Clear removes all fields.
func (s *FieldStorage) Clear() {
	clear(s.fields)
}
