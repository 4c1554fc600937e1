package orm

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

// Tabler lets an entity override its table name.
type Tabler interface {
	TableName() string
}

// Column maps one struct field to a table column.
type Column struct {
	Type       reflect.Type
	Name       string
	GoName     string
	index      []int
	PrimaryKey bool
}

// Metadata describes how an entity type maps to a table.
// It is immutable after Describe returns and safe for concurrent use.
type Metadata struct {
	typ        reflect.Type
	byName     map[string]int
	Name       string
	TypeName   string
	Table      string
	PrimaryKey string
	Columns    []Column
}

// Describe builds metadata from a struct (or pointer to struct) prototype.
//
// Columns come from `db` tags: `db:"name"` maps a field, `db:"id,pk"` marks
// the primary key and `db:"-"` skips a field. Untagged exported fields map to
// their snake_cased name. Without an explicit pk the "id" column is used.
func Describe(prototype any) (*Metadata, error) {
	t := reflect.TypeOf(prototype)
	if t == nil {
		return nil, fmt.Errorf("%w: nil prototype", ErrInvalidEntity)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t.Name() == "" {
		return nil, fmt.Errorf("%w: %s is not a named struct", ErrInvalidEntity, t)
	}

	m := &Metadata{
		typ:      t,
		byName:   make(map[string]int),
		Name:     t.Name(),
		TypeName: t.PkgPath() + "." + t.Name(),
		Table:    SnakeCase(t.Name()) + "s",
	}
	if tabler, ok := reflect.New(t).Interface().(Tabler); ok {
		m.Table = tabler.TableName()
	}

	if err := m.collect(t, nil); err != nil {
		return nil, err
	}
	if len(m.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s has no columns", ErrInvalidEntity, m.Name)
	}

	if m.PrimaryKey == "" {
		idx, ok := m.byName["id"]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, m.Name)
		}
		m.Columns[idx].PrimaryKey = true
		m.PrimaryKey = "id"
	}
	return m, nil
}

func (m *Metadata) collect(t reflect.Type, parent []int) error {
	for i := range t.NumField() {
		sf := t.Field(i)
		tag, hasTag := sf.Tag.Lookup("db")
		if tag == "-" {
			continue
		}
		index := append(append([]int(nil), parent...), i)

		if sf.Anonymous && !hasTag && sf.Type.Kind() == reflect.Struct {
			if err := m.collect(sf.Type, index); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = SnakeCase(sf.Name)
		}
		if _, dup := m.byName[name]; dup {
			return fmt.Errorf("%w: %s has duplicate column %q", ErrInvalidEntity, m.Name, name)
		}

		col := Column{
			Type:   sf.Type,
			Name:   name,
			GoName: sf.Name,
			index:  index,
		}
		if opts == "pk" {
			if m.PrimaryKey != "" {
				return fmt.Errorf("%w: %s has more than one primary key", ErrInvalidEntity, m.Name)
			}
			col.PrimaryKey = true
			m.PrimaryKey = name
		}
		m.byName[name] = len(m.Columns)
		m.Columns = append(m.Columns, col)
	}
	return nil
}

// Column returns the column with the given name.
func (m *Metadata) Column(name string) (Column, bool) {
	idx, ok := m.byName[name]
	if !ok {
		return Column{}, false
	}
	return m.Columns[idx], true
}

// ColumnNames returns all column names in declaration order.
func (m *Metadata) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// New allocates a zero instance and returns a pointer to it.
func (m *Metadata) New() any {
	return reflect.New(m.typ).Interface()
}

// Owns reports whether instance is a pointer to the described type.
func (m *Metadata) Owns(instance any) bool {
	v := reflect.ValueOf(instance)
	return v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Type() == m.typ
}

// Value reads the value of column from instance.
func (m *Metadata) Value(instance any, column string) (any, error) {
	v, err := m.field(instance, column)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Values reads all column values in declaration order.
func (m *Metadata) Values(instance any) ([]any, error) {
	out := make([]any, len(m.Columns))
	for i, c := range m.Columns {
		v, err := m.Value(instance, c.Name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ID returns the primary key value of instance.
func (m *Metadata) ID(instance any) (any, error) {
	return m.Value(instance, m.PrimaryKey)
}

// SetValue assigns value to column on instance, which must be a pointer.
// Nil resets the field to its zero value. Pointer fields accept both the
// pointer and the element type; numeric kinds convert between each other.
func (m *Metadata) SetValue(instance any, column string, value any) error {
	if !m.Owns(instance) {
		return fmt.Errorf("%w: %T is not *%s", ErrInvalidEntity, instance, m.Name)
	}
	fv, err := m.field(instance, column)
	if err != nil {
		return err
	}
	return assign(fv, value, column)
}

// Copy overwrites every column of dst with the values of src.
func (m *Metadata) Copy(dst, src any) error {
	if !m.Owns(dst) {
		return fmt.Errorf("%w: %T is not *%s", ErrInvalidEntity, dst, m.Name)
	}
	for _, c := range m.Columns {
		v, err := m.Value(src, c.Name)
		if err != nil {
			return err
		}
		if err := m.SetValue(dst, c.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// ParseID converts a raw identifier (e.g. from a URL) to the primary key type.
func (m *Metadata) ParseID(raw string) (any, error) {
	col := m.Columns[m.byName[m.PrimaryKey]]
	target := reflect.New(col.Type)
	if err := parseInto(target.Elem(), raw); err != nil {
		return nil, fmt.Errorf("%w: %q for %s.%s: %v", ErrInvalidID, raw, m.Name, col.Name, err)
	}
	return target.Elem().Interface(), nil
}

// scanTargets returns pointers to every column field of instance.
func (m *Metadata) scanTargets(instance any) ([]any, error) {
	targets := make([]any, len(m.Columns))
	for i, c := range m.Columns {
		fv, err := m.field(instance, c.Name)
		if err != nil {
			return nil, err
		}
		targets[i] = fv.Addr().Interface()
	}
	return targets, nil
}

func (m *Metadata) field(instance any, column string) (reflect.Value, error) {
	idx, ok := m.byName[column]
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, m.Name, column)
	}
	v := reflect.ValueOf(instance)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil %s", ErrInvalidEntity, m.Name)
		}
		v = v.Elem()
	}
	if v.Type() != m.typ {
		return reflect.Value{}, fmt.Errorf("%w: %s is not %s", ErrInvalidEntity, v.Type(), m.Name)
	}
	return v.FieldByIndex(m.Columns[idx].index), nil
}

func assign(fv reflect.Value, value any, column string) error {
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	rv := reflect.ValueOf(value)
	ft := fv.Type()

	switch {
	case rv.Type().AssignableTo(ft):
		fv.Set(rv)
		return nil
	case ft.Kind() == reflect.Pointer && rv.Type().AssignableTo(ft.Elem()):
		p := reflect.New(ft.Elem())
		p.Elem().Set(rv)
		fv.Set(p)
		return nil
	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type().AssignableTo(ft):
		fv.Set(rv.Elem())
		return nil
	case isNumeric(rv.Kind()) && isNumeric(ft.Kind()) && rv.Type().ConvertibleTo(ft):
		fv.Set(rv.Convert(ft))
		return nil
	case rv.Kind() == reflect.String && ft.Kind() == reflect.String:
		fv.SetString(rv.String())
		return nil
	}
	return fmt.Errorf("%w: cannot assign %T to %s (%s)", ErrTypeMismatch, value, column, ft)
}

func parseInto(v reflect.Value, raw string) error {
	if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return u.UnmarshalText([]byte(raw))
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	default:
		return fmt.Errorf("unsupported primary key kind %s", v.Kind())
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// SnakeCase converts a Go identifier to snake_case: "UnitPrice" -> "unit_price",
// "ID" -> "id", "CategoryID" -> "category_id".
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
