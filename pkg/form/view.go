package form

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/crudforge/pkg/field"
)

// View is the render-ready snapshot of a form. Templates only read its
// exported fields.
type View struct {
	Name        string
	Method      string
	Action      string
	SubmitLabel string
	// SubmitKey marks a POST submission even when every checkbox is unchecked.
	SubmitKey string
	Fields    []FieldView
	Hidden    []HiddenView
	Errors    []string
	Submitted bool
	Valid     bool
}

// FieldView is one input of a View.
type FieldView struct {
	Name      string
	FullName  string
	ID        string
	Label     string
	Help      string
	Type      string
	Input     string
	Value     string
	Choices   []ChoiceView
	Errors    []string
	MaxLength int
	Checked   bool
	Required  bool
	ReadOnly  bool
}

// ChoiceView is one option of a select input.
type ChoiceView struct {
	Value    string
	Label    string
	Selected bool
}

// HiddenView is a hidden input.
type HiddenView struct {
	Name  string
	Value string
}

// CreateView snapshots the form for rendering.
func (f *Form) CreateView() View {
	v := View{
		Name:        f.name,
		Method:      f.method,
		Action:      f.action,
		SubmitLabel: f.submitLabel,
		Errors:      append([]string(nil), f.formErrors...),
		Submitted:   f.submitted,
		Valid:       f.IsValid(),
	}
	if f.method != http.MethodGet {
		v.SubmitKey = f.Key("_submit")
	}

	for _, h := range f.hidden {
		v.Hidden = append(v.Hidden, HiddenView{Name: f.Key(h.name), Value: h.value})
	}
	for _, h := range f.carried {
		v.Hidden = append(v.Hidden, HiddenView{Name: h.name, Value: h.value})
	}

	for _, fd := range f.fields {
		raw := f.raw[fd.Name]
		fv := FieldView{
			Name:      fd.Name,
			FullName:  f.Key(fd.Name),
			ID:        f.inputID(fd.Name),
			Label:     fd.DisplayLabel(),
			Help:      fd.Help,
			Type:      string(fd.Type),
			Input:     inputType(fd),
			Value:     raw,
			Errors:    f.Errors(fd.Name),
			MaxLength: fd.MaxLength,
			Checked:   fd.Type == field.TypeBoolean && parseBool(raw),
			Required:  fd.Required,
			ReadOnly:  fd.ReadOnly || fd.Type == field.TypeID,
		}
		for _, c := range fd.Choices {
			fv.Choices = append(fv.Choices, ChoiceView{Value: c.Value, Label: c.Label, Selected: c.Value == raw})
		}
		v.Fields = append(v.Fields, fv)
	}
	return v
}

func (f *Form) inputID(name string) string {
	if f.name == "" {
		return name
	}
	return f.name + "_" + strings.ReplaceAll(name, ".", "_")
}

func inputType(fd field.Field) string {
	switch fd.Type {
	case field.TypeTextarea:
		return "textarea"
	case field.TypeInteger, field.TypeNumber:
		return "number"
	case field.TypeBoolean:
		return "checkbox"
	case field.TypeDate:
		return "date"
	case field.TypeDateTime:
		return "datetime-local"
	case field.TypeEmail:
		return "email"
	case field.TypeChoice:
		return "select"
	}
	return "text"
}
