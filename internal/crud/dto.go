package crud

import (
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/orm"
)

// EntityDto is the page-level view of one entity instance. Fields exported
// for templates; use With to derive a modified copy.
type EntityDto struct {
	Instance   any
	Metadata   *orm.Metadata
	Name       string
	FQCN       string
	PrimaryKey string
	ID         string
	Fields     field.Set
	Properties []PropertyDto
	Actions    []ActionDto
}

// PropertyDto is one configured field resolved against the instance.
type PropertyDto struct {
	Value   any
	Name    string
	Label   string
	Display string
	Field   field.Field
}

// ActionDto is a link or button rendered for an entity.
type ActionDto struct {
	Name   string
	Label  string
	URL    string
	Method string
}

// DtoOption modifies a copy of an EntityDto.
type DtoOption func(*EntityDto)

// WithInstance swaps the instance and re-resolves the properties.
func WithInstance(instance any) DtoOption {
	return func(d *EntityDto) {
		d.Instance = instance
		d.resolve()
	}
}

// WithFields replaces the configured fields and re-resolves the properties.
func WithFields(fields field.Set) DtoOption {
	return func(d *EntityDto) {
		d.Fields = fields.Clone()
		d.resolve()
	}
}

// WithActions replaces the entity actions.
func WithActions(actions ...ActionDto) DtoOption {
	return func(d *EntityDto) { d.Actions = slices.Clone(actions) }
}

// With returns a copy of d with opts applied. d is never modified.
func (d EntityDto) With(opts ...DtoOption) EntityDto {
	c := d
	c.Fields = d.Fields.Clone()
	c.Properties = slices.Clone(d.Properties)
	c.Actions = slices.Clone(d.Actions)
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Property returns the resolved property of a field.
func (d EntityDto) Property(name string) (PropertyDto, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDto{}, false
}

// resolve reads the primary key and the configured properties from the
// instance. Without metadata or instance the properties are blank.
func (d *EntityDto) resolve() {
	d.ID = ""
	d.Properties = make([]PropertyDto, 0, len(d.Fields))
	for _, f := range d.Fields {
		var v any
		if d.Metadata != nil && d.Instance != nil {
			v, _ = d.Metadata.Value(d.Instance, f.Name)
		}
		d.Properties = append(d.Properties, PropertyDto{
			Field:   f,
			Name:    f.Name,
			Label:   f.DisplayLabel(),
			Value:   v,
			Display: f.FormatValue(v),
		})
	}
	if d.Metadata != nil && d.Instance != nil {
		if id, err := d.Metadata.ID(d.Instance); err == nil {
			d.ID = formatID(id)
		}
	}
}

func formatID(id any) string {
	return field.ID("id").InputValue(id)
}

// SearchDto is the list state carried in the query string:
//
//	?query=lamp&page=2&sort[price]=DESC&filters[published]=true&referrer=/admin/product
type SearchDto struct {
	Sort     map[string]orm.Direction
	Filters  map[string]string
	Query    string
	Referrer string
	Page     int
}

// ParseSearch reads a SearchDto from the request query string. Invalid
// pages become 1; empty filter values are dropped.
func ParseSearch(r *http.Request) SearchDto {
	q := r.URL.Query()
	s := SearchDto{
		Query:    strings.TrimSpace(q.Get("query")),
		Referrer: q.Get("referrer"),
		Page:     1,
		Sort:     make(map[string]orm.Direction),
		Filters:  make(map[string]string),
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		s.Page = p
	}
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		if name, ok := bracketed(key, "sort"); ok {
			s.Sort[name] = orm.ParseDirection(values[0])
		}
		if name, ok := bracketed(key, "filters"); ok && strings.TrimSpace(values[0]) != "" {
			s.Filters[name] = values[0]
		}
	}
	return s
}

// bracketed extracts "name" from "prefix[name]".
func bracketed(key, prefix string) (string, bool) {
	if !strings.HasPrefix(key, prefix+"[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	name := key[len(prefix)+1 : len(key)-1]
	return name, name != "" && !strings.ContainsAny(name, "[]")
}

// Orders returns the requested sort clauses ordered by field name.
func (s SearchDto) Orders() []orm.Order {
	names := slices.Sorted(maps.Keys(s.Sort))
	out := make([]orm.Order, 0, len(names))
	for _, n := range names {
		out = append(out, orm.Order{Column: n, Direction: s.Sort[n]})
	}
	return out
}

// WithPage returns a copy of s on page n.
func (s SearchDto) WithPage(n int) SearchDto {
	c := s.clone()
	c.Page = max(n, 1)
	return c
}

// WithSort returns a copy of s sorted by a single field, back on page 1.
func (s SearchDto) WithSort(name string, dir orm.Direction) SearchDto {
	c := s.clone()
	c.Sort = map[string]orm.Direction{name: dir}
	c.Page = 1
	return c
}

// Values encodes s back into query parameters. The referrer is not included.
func (s SearchDto) Values() url.Values {
	v := url.Values{}
	if s.Query != "" {
		v.Set("query", s.Query)
	}
	if s.Page > 1 {
		v.Set("page", strconv.Itoa(s.Page))
	}
	for name, dir := range s.Sort {
		v.Set("sort["+name+"]", string(dir))
	}
	for name, value := range s.Filters {
		v.Set("filters["+name+"]", value)
	}
	return v
}

func (s SearchDto) clone() SearchDto {
	c := s
	c.Sort = maps.Clone(s.Sort)
	c.Filters = maps.Clone(s.Filters)
	return c
}
