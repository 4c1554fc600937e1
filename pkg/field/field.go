package field

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Type identifies how a field is displayed, edited and converted.
type Type string

// Supported field types.
const (
	TypeID       Type = "id"
	TypeText     Type = "text"
	TypeTextarea Type = "textarea"
	TypeInteger  Type = "integer"
	TypeNumber   Type = "number"
	TypeBoolean  Type = "boolean"
	TypeDate     Type = "date"
	TypeDateTime Type = "datetime"
	TypeEmail    Type = "email"
	TypeChoice   Type = "choice"
)

// Default layouts for date based types.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// Choice is a selectable option of a choice field.
type Choice struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// Field describes one property of an entity as shown on a CRUD page.
// Name is the column name of the property in the entity's metadata.
type Field struct {
	Name       string   `yaml:"name"`
	Label      string   `yaml:"label,omitempty"`
	Type       Type     `yaml:"type,omitempty"`
	Help       string   `yaml:"help,omitempty"`
	Format     string   `yaml:"format,omitempty"`
	Choices    []Choice `yaml:"choices,omitempty"`
	MaxLength  int      `yaml:"max_length,omitempty"`
	Sortable   bool     `yaml:"sortable,omitempty"`
	Searchable bool     `yaml:"searchable,omitempty"`
	Filterable bool     `yaml:"filterable,omitempty"`
	Required   bool     `yaml:"required,omitempty"`
	ReadOnly   bool     `yaml:"read_only,omitempty"`
}

// New creates a field of the given type.
// An empty type defaults to TypeText.
func New(name string, t Type) Field {
	if t == "" {
		t = TypeText
	}
	return Field{Name: name, Type: t}
}

func ID(name string) Field       { return New(name, TypeID).AsReadOnly().AsSortable() }
func Text(name string) Field     { return New(name, TypeText) }
func Textarea(name string) Field { return New(name, TypeTextarea) }
func Integer(name string) Field  { return New(name, TypeInteger) }
func Number(name string) Field   { return New(name, TypeNumber) }
func Boolean(name string) Field  { return New(name, TypeBoolean) }
func Date(name string) Field     { return New(name, TypeDate) }
func DateTime(name string) Field { return New(name, TypeDateTime) }
func Email(name string) Field    { return New(name, TypeEmail) }

// ChoiceOf creates a choice field with the given options.
func ChoiceOf(name string, choices ...Choice) Field {
	f := New(name, TypeChoice)
	f.Choices = choices
	return f
}

// WithLabel returns a copy of the field with the given label.
func (f Field) WithLabel(label string) Field {
	f.Label = label
	return f
}

// WithHelp returns a copy of the field with a help text.
func (f Field) WithHelp(help string) Field {
	f.Help = help
	return f
}

// WithFormat returns a copy of the field with a display format.
// Date fields use it as a time layout, numbers as a fmt verb.
func (f Field) WithFormat(format string) Field {
	f.Format = format
	return f
}

// WithMaxLength returns a copy of the field limited to n characters.
func (f Field) WithMaxLength(n int) Field {
	f.MaxLength = n
	return f
}

func (f Field) AsSortable() Field {
	f.Sortable = true
	return f
}

func (f Field) AsSearchable() Field {
	f.Searchable = true
	return f
}

func (f Field) AsFilterable() Field {
	f.Filterable = true
	return f
}

func (f Field) AsRequired() Field {
	f.Required = true
	return f
}

func (f Field) AsReadOnly() Field {
	f.ReadOnly = true
	return f
}

// DisplayLabel returns the configured label or a humanized field name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return Humanize(f.Name)
}

// ChoiceLabel returns the label of the choice matching value.
func (f Field) ChoiceLabel(value string) string {
	for _, c := range f.Choices {
		if c.Value == value {
			if c.Label != "" {
				return c.Label
			}
			return c.Value
		}
	}
	return value
}

// FormatValue renders a property value for display.
func (f Field) FormatValue(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case *string:
		if val == nil {
			return ""
		}
		return f.FormatValue(*val)
	case *time.Time:
		if val == nil {
			return ""
		}
		return f.FormatValue(*val)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		layout := f.Format
		if layout == "" {
			layout = DateTimeLayout
			if f.Type == TypeDate {
				layout = DateLayout
			}
		}
		return val.Format(layout)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float32, float64:
		if f.Format != "" {
			return fmt.Sprintf(f.Format, val)
		}
		return strconv.FormatFloat(toFloat(val), 'f', -1, 64)
	case string:
		if f.Type == TypeChoice {
			return f.ChoiceLabel(val)
		}
		return val
	case fmt.Stringer:
		return val.String()
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return ""
		}
		return f.FormatValue(rv.Elem().Interface())
	case reflect.String:
		return f.FormatValue(rv.String())
	}
	return fmt.Sprint(v)
}

// InputValue renders a property value as an HTML form input value.
func (f Field) InputValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case *time.Time:
		if val == nil {
			return ""
		}
		return f.InputValue(*val)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		if f.Type == TypeDate {
			return val.Format(DateLayout)
		}
		return val.Format(DateTimeLayout)
	case bool:
		return strconv.FormatBool(val)
	case float32, float64:
		return strconv.FormatFloat(toFloat(val), 'f', -1, 64)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return f.InputValue(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// Humanize turns a column or Go identifier into a label:
// "created_at" and "CreatedAt" both become "Created at".
func Humanize(name string) string {
	if name == "" {
		return ""
	}
	var b strings.Builder
	prevLower := false
	for i, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(' ')
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			b.WriteRune(' ')
		}
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
