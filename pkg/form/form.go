package form

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/dmitrymomot/crudforge/pkg/field"
)

// Binder reads and writes named values on a bound instance.
// *orm.Metadata satisfies it.
type Binder interface {
	Value(instance any, name string) (any, error)
	SetValue(instance any, name string, value any) error
}

type hidden struct {
	name  string
	value string
}

// Form is a named HTML form over a set of fields. Inputs are submitted as
// "{name}[{field}]" keys; hidden values as "{name}[{key}]"; list inputs as
// "{name}[{key}][]".
//
// A Form is built per request and is not safe for concurrent use.
type Form struct {
	instance    any
	binder      Binder
	raw         map[string]string
	data        map[string]any
	lists       map[string][]string
	errors      map[string][]string
	name        string
	method      string
	action      string
	submitLabel string
	fields      field.Set
	hidden      []hidden
	carried     []hidden
	listNames   []string
	formErrors  []string
	submitted   bool
}

// Option configures a Form.
type Option func(*Form)

// WithMethod sets the HTTP method; GET forms read the query string.
func WithMethod(method string) Option {
	return func(f *Form) { f.method = strings.ToUpper(method) }
}

// WithAction sets the URL the form submits to.
func WithAction(action string) Option {
	return func(f *Form) { f.action = action }
}

// WithFields sets the input fields, in display order.
func WithFields(fields field.Set) Option {
	return func(f *Form) { f.fields = fields.Clone() }
}

// WithHidden adds a hidden input.
func WithHidden(name, value string) Option {
	return func(f *Form) { f.hidden = append(f.hidden, hidden{name: name, value: value}) }
}

// WithCarried adds a hidden input submitted under name as is, outside the
// form's keys. GET forms use it to keep the rest of the query string.
func WithCarried(name, value string) Option {
	return func(f *Form) { f.carried = append(f.carried, hidden{name: name, value: value}) }
}

// WithList declares a multi-valued input such as a checkbox list of ids.
func WithList(name string) Option {
	return func(f *Form) { f.listNames = append(f.listNames, name) }
}

// WithData binds the form to instance. Initial values are read from it and
// valid submissions are written back through binder.
func WithData(instance any, binder Binder) Option {
	return func(f *Form) {
		f.instance = instance
		f.binder = binder
	}
}

// WithValues sets initial raw input values by field name.
func WithValues(values map[string]string) Option {
	return func(f *Form) { maps.Copy(f.raw, values) }
}

// WithSubmitLabel sets the submit button text.
func WithSubmitLabel(label string) Option {
	return func(f *Form) { f.submitLabel = label }
}

// New creates a form. The default method is POST.
func New(name string, opts ...Option) *Form {
	f := &Form{
		name:        name,
		method:      http.MethodPost,
		submitLabel: "Save",
		raw:         make(map[string]string),
		data:        make(map[string]any),
		lists:       make(map[string][]string),
		errors:      make(map[string][]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.instance != nil && f.binder != nil {
		for _, fd := range f.fields {
			if _, set := f.raw[fd.Name]; set {
				continue
			}
			if v, err := f.binder.Value(f.instance, fd.Name); err == nil {
				f.raw[fd.Name] = fd.InputValue(v)
			}
		}
	}
	return f
}

func (f *Form) Name() string { return f.name }
func (f *Form) Method() string { return f.method }
func (f *Form) Action() string { return f.action }
func (f *Form) Fields() field.Set { return f.fields.Clone() }
func (f *Form) Instance() any { return f.instance }

// Key returns the submitted parameter name of an input.
func (f *Form) Key(name string) string {
	if f.name == "" {
		return name
	}
	return f.name + "[" + name + "]"
}

// HandleRequest reads the form's inputs from r when r submits this form:
// the method matches and at least one of the form's keys is present.
// Values are converted and validated per field type; when every value is
// valid and the form is bound, they are written to the instance.
func (f *Form) HandleRequest(r *http.Request) error {
	var values url.Values
	switch {
	case f.method == http.MethodGet && (r.Method == http.MethodGet || r.Method == http.MethodHead):
		values = r.URL.Query()
	case f.method != http.MethodGet && r.Method == f.method:
		if err := r.ParseForm(); err != nil {
			return errors.Join(ErrInvalidRequest, err)
		}
		values = r.PostForm
	default:
		return nil
	}
	if !f.isSubmission(values) {
		return nil
	}
	f.submitted = true

	for _, name := range f.listNames {
		list := values[f.Key(name)+"[]"]
		if len(list) == 0 {
			list = values[f.Key(name)]
		}
		f.lists[name] = slices.DeleteFunc(slices.Clone(list), func(s string) bool { return strings.TrimSpace(s) == "" })
	}
	for i, h := range f.hidden {
		if v, ok := values[f.Key(h.name)]; ok && len(v) > 0 {
			f.hidden[i].value = v[0]
		}
	}

	for _, fd := range f.fields {
		if fd.ReadOnly || fd.Type == field.TypeID {
			continue
		}
		raw := values.Get(f.Key(fd.Name))
		if fd.Type == field.TypeBoolean {
			raw = fmt.Sprint(parseBool(raw))
		}
		f.raw[fd.Name] = raw

		v, errs := Convert(fd, raw)
		if len(errs) > 0 {
			f.errors[fd.Name] = append(f.errors[fd.Name], errs...)
			continue
		}
		f.data[fd.Name] = v
	}

	if !f.IsValid() || f.instance == nil || f.binder == nil {
		return nil
	}
	for _, fd := range f.fields {
		v, ok := f.data[fd.Name]
		if !ok {
			continue
		}
		if err := f.binder.SetValue(f.instance, fd.Name, v); err != nil {
			f.errors[fd.Name] = append(f.errors[fd.Name], "This value is not valid.")
			return errors.Join(ErrBindFailed, err)
		}
	}
	return nil
}

func (f *Form) isSubmission(values url.Values) bool {
	if f.name == "" {
		return slices.ContainsFunc(f.fields, func(fd field.Field) bool { return values.Has(fd.Name) })
	}
	prefix := f.name + "["
	for key := range values {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// IsSubmitted reports whether HandleRequest found a submission.
func (f *Form) IsSubmitted() bool { return f.submitted }

// IsValid reports whether the form was submitted without errors.
func (f *Form) IsValid() bool {
	return f.submitted && len(f.errors) == 0 && len(f.formErrors) == 0
}

// Data returns the converted values of a submission by field name.
// Empty inputs map to nil.
func (f *Form) Data() map[string]any { return maps.Clone(f.data) }

// Raw returns the raw input value of a field.
func (f *Form) Raw(name string) string { return f.raw[name] }

// List returns the submitted values of a list input.
func (f *Form) List(name string) []string { return slices.Clone(f.lists[name]) }

// Hidden returns the value of a hidden input.
func (f *Form) Hidden(name string) string {
	for _, h := range f.hidden {
		if h.name == name {
			return h.value
		}
	}
	return ""
}

// Errors returns the validation errors of a field.
func (f *Form) Errors(name string) []string { return slices.Clone(f.errors[name]) }

// AddError attaches an error to a field, or to the form when name is empty.
func (f *Form) AddError(name, message string) {
	if name == "" {
		f.formErrors = append(f.formErrors, message)
		return
	}
	f.errors[name] = append(f.errors[name], message)
}
