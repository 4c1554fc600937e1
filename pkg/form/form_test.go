package form_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/form"
)

// mapBinder stores values in a map so tests stay independent of the orm.
type mapBinder struct{}

func (mapBinder) Value(instance any, name string) (any, error) {
	v, ok := instance.(map[string]any)[name]
	if !ok {
		return nil, fmt.Errorf("unknown %s", name)
	}
	return v, nil
}

func (mapBinder) SetValue(instance any, name string, value any) error {
	instance.(map[string]any)[name] = value
	return nil
}

func postRequest(values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/products/1/edit", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func productFields() field.Set {
	return field.Of(
		field.ID("id"),
		field.Text("name").AsRequired().WithMaxLength(10),
		field.Number("price"),
		field.Integer("stock"),
		field.Boolean("published"),
		field.Date("released_on"),
		field.ChoiceOf("status", field.Choice{Value: "draft", Label: "Draft"}, field.Choice{Value: "live", Label: "Live"}),
		field.Email("contact"),
	)
}

func TestConvert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		field   field.Field
		raw     string
		want    any
		wantErr string
	}{
		{"text trims and strips", field.Text("a"), "  <b>Lamp</b> ", "Lamp", ""},
		{"text keeps operators", field.Text("a"), "a < b", "a < b", ""},
		{"required blank", field.Text("a").AsRequired(), "   ", nil, form.MsgRequired},
		{"optional blank", field.Integer("a"), "", nil, ""},
		{"too long", field.Text("a").WithMaxLength(3), "abcd", nil, "This value is too long. It should have 3 characters or less."},
		{"integer", field.Integer("a"), "42", int64(42), ""},
		{"bad integer", field.Integer("a"), "4.2", nil, form.MsgInteger},
		{"number", field.Number("a"), "4.25", 4.25, ""},
		{"bad number", field.Number("a"), "four", nil, form.MsgNumber},
		{"checkbox on", field.Boolean("a"), "on", true, ""},
		{"checkbox off", field.Boolean("a"), "", false, ""},
		{"date", field.Date("a"), "2024-03-09", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), ""},
		{"bad date", field.Date("a"), "09/03/2024", nil, form.MsgDate},
		{"datetime", field.DateTime("a"), "2024-03-09T14:30", time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC), ""},
		{"email", field.Email("a"), " Ops@Example.com ", "ops@example.com", ""},
		{"bad email", field.Email("a"), "ops at example", nil, form.MsgEmail},
		{"choice", field.ChoiceOf("a", field.Choice{Value: "x"}), "x", "x", ""},
		{"bad choice", field.ChoiceOf("a", field.Choice{Value: "x"}), "y", nil, form.MsgChoice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, errs := form.Convert(tt.field, tt.raw)
			if tt.wantErr != "" {
				require.Equal(t, []string{tt.wantErr}, errs)
				assert.Nil(t, got)
				return
			}
			require.Empty(t, errs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleRequest(t *testing.T) {
	t.Parallel()

	t.Run("valid submission is bound to the instance", func(t *testing.T) {
		t.Parallel()
		instance := map[string]any{"id": int64(1), "name": "Old", "price": 1.0, "stock": int64(1),
			"published": false, "released_on": time.Time{}, "status": "draft", "contact": ""}
		f := form.New("edit", form.WithFields(productFields()), form.WithData(instance, mapBinder{}))

		assert.Equal(t, "Old", f.Raw("name"))

		err := f.HandleRequest(postRequest(url.Values{
			"edit[name]":        {"Lamp"},
			"edit[price]":       {"12.5"},
			"edit[stock]":       {"3"},
			"edit[published]":   {"1"},
			"edit[released_on]": {"2024-01-02"},
			"edit[status]":      {"live"},
			"edit[id]":          {"999"},
		}))
		require.NoError(t, err)
		require.True(t, f.IsSubmitted())
		require.True(t, f.IsValid())

		assert.Equal(t, "Lamp", instance["name"])
		assert.Equal(t, 12.5, instance["price"])
		assert.Equal(t, int64(3), instance["stock"])
		assert.Equal(t, true, instance["published"])
		assert.Equal(t, "live", instance["status"])
		assert.Nil(t, instance["contact"])
		assert.Equal(t, int64(1), instance["id"], "id fields are never bound")
	})

	t.Run("invalid submission leaves the instance untouched", func(t *testing.T) {
		t.Parallel()
		instance := map[string]any{"name": "Old", "price": 1.0}
		f := form.New("edit",
			form.WithFields(field.Of(field.Text("name").AsRequired(), field.Number("price"))),
			form.WithData(instance, mapBinder{}),
		)

		err := f.HandleRequest(postRequest(url.Values{"edit[name]": {""}, "edit[price]": {"7"}}))
		require.NoError(t, err)
		assert.True(t, f.IsSubmitted())
		assert.False(t, f.IsValid())
		assert.Equal(t, []string{form.MsgRequired}, f.Errors("name"))
		assert.Equal(t, "Old", instance["name"])
		assert.Equal(t, 1.0, instance["price"])
	})

	t.Run("other method is not a submission", func(t *testing.T) {
		t.Parallel()
		f := form.New("edit", form.WithFields(productFields()))
		require.NoError(t, f.HandleRequest(httptest.NewRequest(http.MethodGet, "/?edit[name]=x", nil)))
		assert.False(t, f.IsSubmitted())
		assert.False(t, f.IsValid())
	})

	t.Run("foreign keys are not a submission", func(t *testing.T) {
		t.Parallel()
		f := form.New("edit", form.WithFields(productFields()))
		require.NoError(t, f.HandleRequest(postRequest(url.Values{"other[name]": {"x"}})))
		assert.False(t, f.IsSubmitted())
	})

	t.Run("submit key alone submits unchecked checkboxes", func(t *testing.T) {
		t.Parallel()
		instance := map[string]any{"published": true}
		f := form.New("edit", form.WithFields(field.Of(field.Boolean("published"))), form.WithData(instance, mapBinder{}))

		require.NoError(t, f.HandleRequest(postRequest(url.Values{f.CreateView().SubmitKey: {"1"}})))
		require.True(t, f.IsValid())
		assert.Equal(t, false, instance["published"])
	})

	t.Run("get form echoes the query string", func(t *testing.T) {
		t.Parallel()
		f := form.New("filters",
			form.WithMethod(http.MethodGet),
			form.WithFields(field.Of(
				field.Text("name"),
				field.ChoiceOf("published", field.Choice{Value: "true", Label: "Yes"}, field.Choice{Value: "false", Label: "No"}),
			)),
		)
		r := httptest.NewRequest(http.MethodGet, "/products/filters?filters[name]=lamp&filters[published]=false", nil)
		require.NoError(t, f.HandleRequest(r))
		require.True(t, f.IsValid())

		view := f.CreateView()
		require.Len(t, view.Fields, 2)
		assert.Equal(t, "lamp", view.Fields[0].Value)
		assert.Equal(t, "filters[name]", view.Fields[0].FullName)
		assert.False(t, view.Fields[1].Choices[0].Selected)
		assert.True(t, view.Fields[1].Choices[1].Selected)
		assert.Empty(t, view.SubmitKey)
	})

	t.Run("lists and hidden values", func(t *testing.T) {
		t.Parallel()
		f := form.New("batch_form", form.WithList("ids"), form.WithHidden("entity", "Product"))
		err := f.HandleRequest(postRequest(url.Values{
			"batch_form[ids][]":   {"1", "", "3"},
			"batch_form[entity]": {"Product"},
		}))
		require.NoError(t, err)
		assert.True(t, f.IsValid())
		assert.Equal(t, []string{"1", "3"}, f.List("ids"))
		assert.Equal(t, "Product", f.Hidden("entity"))
	})

	t.Run("form level errors invalidate", func(t *testing.T) {
		t.Parallel()
		f := form.New("edit", form.WithFields(field.Of(field.Text("name"))))
		require.NoError(t, f.HandleRequest(postRequest(url.Values{"edit[name]": {"x"}})))
		f.AddError("", "Conflict")
		assert.False(t, f.IsValid())
		assert.Equal(t, []string{"Conflict"}, f.CreateView().Errors)
	})
}

func TestCreateView(t *testing.T) {
	t.Parallel()

	instance := map[string]any{"id": int64(5), "name": "Lamp", "price": 9.5, "stock": int64(2),
		"published": true, "released_on": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "status": "live", "contact": "a@b.co"}
	f := form.New("edit",
		form.WithFields(productFields()),
		form.WithData(instance, mapBinder{}),
		form.WithAction("/products/5/edit"),
		form.WithHidden("referrer", "/products"),
		form.WithCarried("query", "lamp"),
		form.WithSubmitLabel("Update"),
	)

	v := f.CreateView()
	assert.Equal(t, "POST", v.Method)
	assert.Equal(t, "/products/5/edit", v.Action)
	assert.Equal(t, "Update", v.SubmitLabel)
	assert.Equal(t, "edit[_submit]", v.SubmitKey)
	assert.Equal(t, []form.HiddenView{
		{Name: "edit[referrer]", Value: "/products"},
		{Name: "query", Value: "lamp"},
	}, v.Hidden)

	byName := map[string]form.FieldView{}
	for _, fv := range v.Fields {
		byName[fv.Name] = fv
	}
	assert.True(t, byName["id"].ReadOnly)
	assert.Equal(t, "5", byName["id"].Value)
	assert.Equal(t, "edit_name", byName["name"].ID)
	assert.Equal(t, "Name", byName["name"].Label)
	assert.True(t, byName["name"].Required)
	assert.Equal(t, 10, byName["name"].MaxLength)
	assert.Equal(t, "number", byName["price"].Input)
	assert.Equal(t, "9.5", byName["price"].Value)
	assert.Equal(t, "checkbox", byName["published"].Input)
	assert.True(t, byName["published"].Checked)
	assert.Equal(t, "2024-01-02", byName["released_on"].Value)
	assert.Equal(t, "select", byName["status"].Input)
	assert.True(t, byName["status"].Choices[1].Selected)
	assert.Equal(t, "email", byName["contact"].Input)
}
