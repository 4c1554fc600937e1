package render_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/flosch/pongo2/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/crudforge/pkg/form"
	"github.com/dmitrymomot/crudforge/pkg/render"
)

func TestRender(t *testing.T) {
	t.Parallel()

	overrides := fstest.MapFS{
		"hello.html":      {Data: []byte("Hello {{ name }} from {{ site }}")},
		"escape.html":     {Data: []byte("{{ value }}")},
		"crud/index.html": {Data: []byte("custom index: {{ entities|length }}")},
	}
	engine, err := render.New(
		render.WithFS(overrides),
		render.WithGlobals(map[string]any{"site": "admin"}),
	)
	require.NoError(t, err)

	t.Run("resolves path without extension", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, engine.Render(context.Background(), &buf, "hello", map[string]any{"name": "Ada"}))
		assert.Equal(t, "Hello Ada from admin", buf.String())
	})

	t.Run("autoescapes values", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, engine.Render(context.Background(), &buf, "escape.html", map[string]any{"value": "<b>x</b>"}))
		assert.Equal(t, "&lt;b&gt;x&lt;/b&gt;", buf.String())
	})

	t.Run("override wins over defaults", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, engine.Render(context.Background(), &buf, "crud/index", map[string]any{"entities": []int{1, 2}}))
		assert.Equal(t, "custom index: 2", buf.String())
	})

	t.Run("defaults fill the gaps", func(t *testing.T) {
		t.Parallel()
		assert.True(t, engine.Exists("crud/detail"))
		assert.True(t, engine.Exists("layout"))
		assert.False(t, engine.Exists("crud/unknown"))
	})

	t.Run("missing template", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := engine.Render(context.Background(), &buf, "nope", nil)
		require.ErrorIs(t, err, render.ErrTemplateNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var buf bytes.Buffer
		require.ErrorIs(t, engine.Render(ctx, &buf, "hello", nil), context.Canceled)
	})

	t.Run("concurrent renders share the cache", func(t *testing.T) {
		t.Parallel()
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var buf bytes.Buffer
				assert.NoError(t, engine.Render(context.Background(), &buf, "hello", map[string]any{"name": i}))
			}()
		}
		wg.Wait()
	})
}

func TestRenderString(t *testing.T) {
	t.Parallel()

	engine, err := render.New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, engine.RenderString(context.Background(), &buf, "{{ a }}-{{ b|upper }}", map[string]any{"a": 1, "b": "x"}))
	assert.Equal(t, "1-X", buf.String())
}

func TestComponent(t *testing.T) {
	t.Parallel()

	engine, err := render.New(render.WithFS(fstest.MapFS{
		"card.html": {Data: []byte("<div>{{ title }}</div>")},
	}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, engine.Component("card", map[string]any{"title": "Stock"}).Render(context.Background(), &buf))
	assert.Equal(t, "<div>Stock</div>", buf.String())
}

func TestWithFilter(t *testing.T) {
	t.Parallel()

	shout := func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		return pongo2.AsValue(strings.ToUpper(in.String()) + "!"), nil
	}
	engine, err := render.New(
		render.WithoutDefaults(),
		render.WithFS(fstest.MapFS{"s.html": {Data: []byte("{{ word|crudforge_shout }}")}}),
		render.WithFilter("crudforge_shout", shout),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, engine.Render(context.Background(), &buf, "s", map[string]any{"word": "hey"}))
	assert.Equal(t, "HEY!", buf.String())
}

func TestNewWithoutSources(t *testing.T) {
	t.Parallel()

	_, err := render.New(render.WithoutDefaults())
	require.ErrorIs(t, err, render.ErrNoTemplates)
}

func TestDefaultTemplates(t *testing.T) {
	t.Parallel()

	engine, err := render.New()
	require.NoError(t, err)

	t.Run("dashboard lists cruds", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := engine.Render(context.Background(), &buf, "dashboard", map[string]any{
			"dashboard": map[string]any{"Title": "Shop", "URL": "/admin"},
			"cruds":     []map[string]any{{"Label": "Products", "URL": "/admin/product"}},
		})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `<a href="/admin/product">Products</a>`)
		assert.Contains(t, buf.String(), "<title>Shop</title>")
	})

	t.Run("index rows submit their own delete form", func(t *testing.T) {
		t.Parallel()
		type action struct{ Name, Label, URL string }
		type entity struct {
			ID         string
			Properties []any
			Actions    []action
		}
		var buf bytes.Buffer
		err := engine.Render(context.Background(), &buf, "crud/index", map[string]any{
			"crud": map[string]any{"PluralLabel": "Products", "IndexURL": "/admin/product"},
			"entities": []entity{{ID: "7", Actions: []action{
				{Name: "edit", Label: "Edit", URL: "/admin/product/7/edit"},
				{Name: "delete", Label: "Delete", URL: "/admin/product/7/delete?referrer=%2Fadmin%2Fproduct"},
			}}},
			"batch_form":           form.View{Name: "batch_form", SubmitKey: "batch_form[_submit]"},
			"delete_form_template": form.View{Name: "delete_form", SubmitKey: "delete_form[_submit]"},
			"paginator":            map[string]any{"Pages": 1, "Total": 1},
		})
		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, `<button type="submit" form="delete-7" class="action-delete">Delete</button>`)
		assert.Contains(t, out, `action="/admin/product/7/delete?referrer=%2Fadmin%2Fproduct" id="delete-7"`)
		assert.Contains(t, out, `name="delete_form[_submit]" value="1"`)
		assert.NotContains(t, out, "hidden id=")
	})

	t.Run("filters is standalone and echoes values", func(t *testing.T) {
		t.Parallel()
		view := form.View{
			Name:        "filters",
			Method:      "GET",
			Action:      "/admin/product",
			SubmitLabel: "Apply",
			Fields: []form.FieldView{{
				Name: "name", FullName: "filters[name]", ID: "filters_name",
				Label: "Name", Input: "text", Value: "lamp",
			}},
		}
		var buf bytes.Buffer
		require.NoError(t, engine.Render(context.Background(), &buf, "crud/filters", map[string]any{"filters_form": view}))
		out := buf.String()
		assert.NotContains(t, out, "<html")
		assert.Contains(t, out, `name="filters[name]" value="lamp"`)
		assert.Contains(t, out, `action="/admin/product"`)
	})
}
