package field

import "slices"

// Set is an ordered list of fields configured for one page.
type Set []Field

// Of builds a Set from fields, keeping their order.
func Of(fields ...Field) Set {
	return Set(fields)
}

// Names returns the field names in order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Find returns the field with the given name.
func (s Set) Find(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Has reports whether the set contains a field with the given name.
func (s Set) Has(name string) bool {
	_, ok := s.Find(name)
	return ok
}

// Searchable returns the names of fields used by free-text search.
func (s Set) Searchable() []string {
	return s.namesWhere(func(f Field) bool { return f.Searchable })
}

// Filterable returns the fields exposed in the filters form.
func (s Set) Filterable() Set {
	return s.Filter(func(f Field) bool { return f.Filterable })
}

// Editable returns the fields that are not read-only.
func (s Set) Editable() Set {
	return s.Filter(func(f Field) bool { return !f.ReadOnly && f.Type != TypeID })
}

// IsSortable reports whether name is a sortable field of the set.
func (s Set) IsSortable(name string) bool {
	f, ok := s.Find(name)
	return ok && f.Sortable
}

// Filter returns the fields matching keep.
func (s Set) Filter(keep func(Field) bool) Set {
	out := make(Set, 0, len(s))
	for _, f := range s {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a copy that shares no backing array with s.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := slices.Clone(s)
	for i := range out {
		out[i].Choices = slices.Clone(out[i].Choices)
	}
	return out
}

func (s Set) namesWhere(keep func(Field) bool) []string {
	var names []string
	for _, f := range s {
		if keep(f) {
			names = append(names, f.Name)
		}
	}
	return names
}
