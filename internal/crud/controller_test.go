package crud_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/crudforge/internal"
	"github.com/dmitrymomot/crudforge/internal/crud"
	"github.com/dmitrymomot/crudforge/pkg/event"
	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/form"
	"github.com/dmitrymomot/crudforge/pkg/orm"
	"github.com/dmitrymomot/crudforge/pkg/paginator"
)

type Product struct {
	ID        int64   `db:"id,pk"`
	Name      string  `db:"name"`
	Price     float64 `db:"price"`
	Published bool    `db:"published"`
}

type productCrud struct {
	params func(action string, p crud.Parameters) crud.Parameters
	crud   crud.CrudConfig
}

func (p productCrud) ConfigureCrud() crud.CrudConfig {
	cfg := p.crud
	if cfg.Entity == "" {
		cfg.Entity = "Product"
	}
	return cfg
}

func (productCrud) ConfigureFields(action string) field.Set {
	switch action {
	case crud.ActionIndex:
		return field.Of(
			field.ID("id"),
			field.Text("name").AsSearchable().AsSortable().AsFilterable(),
			field.Number("price").AsSortable(),
			field.Boolean("published").AsFilterable(),
		)
	case crud.ActionEdit:
		return field.Of(
			field.Text("name").AsRequired(),
			field.Number("price"),
			field.Boolean("published"),
		)
	}
	return field.Of(field.ID("id"), field.Text("name"), field.Number("price"))
}

type hookedCrud struct{ productCrud }

// mistypedCrud edits price through a checkbox, which the float column rejects.
type mistypedCrud struct{ productCrud }

func (m mistypedCrud) ConfigureFields(action string) field.Set {
	if action == crud.ActionEdit {
		return field.Of(field.Text("name"), field.Boolean("price"))
	}
	return m.productCrud.ConfigureFields(action)
}

func (h hookedCrud) TemplateParameters(action string, p crud.Parameters) crud.Parameters {
	return h.params(action, p)
}

// memoryManager keeps products in memory and records writes. Flushes and
// anything passed to record share one ordered log.
type memoryManager struct {
	items    map[int64]*Product
	merged   []any
	removed  []any
	log      []string
	flushErr error
	flushes  int
	mu       sync.Mutex
}

func (m *memoryManager) record(entry string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, entry)
}

func (m *memoryManager) flushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

func (m *memoryManager) Find(_ context.Context, _ *orm.Metadata, id any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id.(int64)]
	if !ok {
		return nil, fmt.Errorf("%w: Product %v", orm.ErrNotFound, id)
	}
	return p, nil
}

func (m *memoryManager) Merge(_ *orm.Metadata, instance any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merged = append(m.merged, instance)
	return instance, nil
}

func (m *memoryManager) Remove(_ *orm.Metadata, instance any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, instance)
	return nil
}

func (m *memoryManager) Flush(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flushErr != nil {
		return m.flushErr
	}
	m.flushes++
	m.log = append(m.log, "flush")
	for _, r := range m.removed {
		delete(m.items, r.(*Product).ID)
	}
	return nil
}

type memorySource struct{ m *memoryManager }

func (s memorySource) Fetch(context.Context, *orm.QueryBuilder) ([]any, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := make([]any, 0, len(s.m.items))
	for id := int64(1); id <= int64(len(s.m.items)); id++ {
		if p, ok := s.m.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s memorySource) Count(context.Context, *orm.QueryBuilder) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return len(s.m.items), nil
}

type recordingPaginators struct {
	*paginator.Factory
	query       *orm.QueryBuilder
	invalidated []string
}

func (p *recordingPaginators) Create(ctx context.Context, qb *orm.QueryBuilder, page, pageSize int) (*paginator.Paginator, error) {
	p.query = qb
	return p.Factory.Create(ctx, qb, page, pageSize)
}

func (p *recordingPaginators) Invalidate(ctx context.Context, entity string) {
	p.invalidated = append(p.invalidated, entity)
	p.Factory.Invalidate(ctx, entity)
}

type countingEntities struct {
	crud.EntityFactory
	calls int
}

func (e *countingEntities) Create(ctx context.Context, app *crud.ApplicationContext, fields field.Set) (crud.EntityDto, error) {
	e.calls++
	return e.EntityFactory.Create(ctx, app, fields)
}

type countingForms struct {
	crud.FormFactory
	calls int
}

func (f *countingForms) CreateEditForm(app *crud.ApplicationContext, entity crud.EntityDto) *form.Form {
	f.calls++
	return f.FormFactory.CreateEditForm(app, entity)
}

func (f *countingForms) CreateDeleteForm(app *crud.ApplicationContext, id string) *form.Form {
	f.calls++
	return f.FormFactory.CreateDeleteForm(app, id)
}

func (f *countingForms) CreateFiltersForm(app *crud.ApplicationContext, fields field.Set) *form.Form {
	f.calls++
	return f.FormFactory.CreateFiltersForm(app, fields)
}

func (f *countingForms) CreateBatchForm(app *crud.ApplicationContext) *form.Form {
	f.calls++
	return f.FormFactory.CreateBatchForm(app)
}

type renderCall struct {
	params map[string]any
	path   string
}

type recordingRenderer struct {
	calls []renderCall
	err   error
}

func (r *recordingRenderer) Render(_ context.Context, w io.Writer, path string, params map[string]any) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, renderCall{path: path, params: params})
	_, err := io.WriteString(w, "<main>"+path+"</main>")
	return err
}

func (r *recordingRenderer) last(t *testing.T) renderCall {
	t.Helper()
	require.NotEmpty(t, r.calls, "nothing rendered")
	return r.calls[len(r.calls)-1]
}

type fixture struct {
	manager    *memoryManager
	entities   *countingEntities
	forms      *countingForms
	paginators *recordingPaginators
	renderer   *recordingRenderer
	events     *crud.Dispatcher
	services   crud.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := orm.NewRegistry()
	require.NoError(t, registry.Register(Product{}))

	f := &fixture{
		manager: &memoryManager{items: map[int64]*Product{
			1: {ID: 1, Name: "Lamp", Price: 10},
			2: {ID: 2, Name: "Desk", Price: 120, Published: true},
		}},
		entities: &countingEntities{EntityFactory: crud.NewEntityFactory(registry)},
		forms:    &countingForms{FormFactory: crud.NewFormFactory()},
		renderer: &recordingRenderer{},
		events:   crud.NewDispatcher(),
	}
	f.paginators = &recordingPaginators{Factory: paginator.NewFactory(memorySource{f.manager}, paginator.WithPageSize(10))}
	f.services = crud.Services{
		Entities:   f.entities,
		Repository: crud.NewEntityRepository(orm.NewRepository(nil, orm.Postgres)),
		Paginators: f.paginators,
		Forms:      f.forms,
		Renderer:   f.renderer,
		Managers:   crud.ManagerRegistryFunc(func() crud.ObjectManager { return f.manager }),
		Events:     f.events,
	}
	return f
}

func (f *fixture) serve(t *testing.T, cfg crud.Configurator, req *http.Request, opts ...crud.Option) *httptest.ResponseRecorder {
	t.Helper()

	c, err := crud.NewController(cfg, f.services, opts...)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	internal.New(internal.WithHandlers(c)).ServeHTTP(w, req)
	return w
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestNewController(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		c, err := crud.NewController(productCrud{}, newFixture(t).services)
		require.NoError(t, err)
		cfg := c.Config()
		assert.Equal(t, "product", cfg.Path)
		assert.Equal(t, "Product", cfg.Label)
		assert.Equal(t, "Products", cfg.PluralLabel)
		assert.Equal(t, "/product", c.URLs().Index())
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()

		c, err := crud.NewController(productCrud{}, newFixture(t).services, crud.WithPrefix("admin/"))
		require.NoError(t, err)
		assert.Equal(t, "/admin/product/7/edit", c.URLs().Edit("7"))
		assert.Equal(t, "/admin/", c.URLs().Dashboard())
	})

	t.Run("nil configurator", func(t *testing.T) {
		t.Parallel()

		_, err := crud.NewController(nil, newFixture(t).services)
		assert.ErrorIs(t, err, crud.ErrInvalidConfig)
	})

	t.Run("missing services", func(t *testing.T) {
		t.Parallel()

		services := newFixture(t).services
		services.Renderer = nil
		services.Forms = nil
		_, err := crud.NewController(productCrud{}, services)
		require.ErrorIs(t, err, crud.ErrMissingService)
		assert.Contains(t, err.Error(), "template renderer")
		assert.Contains(t, err.Error(), "form factory")
	})
}

func TestControllerIndex(t *testing.T) {
	t.Parallel()

	t.Run("htmx search pushes the list url", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/product?query=lamp", nil)
		req.Header.Set("HX-Request", "true")
		w := f.serve(t, productCrud{}, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "/product?query=lamp", w.Header().Get("HX-Push-Url"))
	})

	t.Run("plain request has no htmx headers", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, "/product?query=lamp", nil))
		assert.Empty(t, w.Header().Get("HX-Push-Url"))
	})

	t.Run("lists one page", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, "/product", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "<main>crud/index</main>", w.Body.String())

		call := f.renderer.last(t)
		assert.Equal(t, crud.TemplateIndex, call.path)
		assert.Equal(t, crud.ActionIndex, call.params["action"])

		entities := call.params["entities"].([]crud.EntityDto)
		require.Len(t, entities, 2)
		assert.Equal(t, "1", entities[0].ID)
		name, ok := entities[0].Property("name")
		require.True(t, ok)
		assert.Equal(t, "Lamp", name.Display)
		require.Len(t, entities[0].Actions, 3)
		assert.Equal(t, "/product/1", entities[0].Actions[0].URL)

		page := call.params["paginator"].(*paginator.Paginator)
		assert.Equal(t, 2, page.Total)
		assert.NotContains(t, call.params, "next_url")

		batch := call.params["batch_form"].(form.View)
		assert.Equal(t, "/product/batch?referrer=%2Fproduct", batch.Action)

		deleteTemplate := call.params["delete_form_template"].(form.View)
		assert.Contains(t, deleteTemplate.Action, "/product/"+crud.IDPlaceholder+"/delete")

		assert.Equal(t, crud.CrudView{
			Entity:      "Product",
			Label:       "Product",
			PluralLabel: "Products",
			IndexURL:    "/product",
			Searchable:  true,
		}, call.params["crud"])
		assert.Equal(t, []crud.MenuItem{{Label: "Products", URL: "/product", Active: true}}, call.params["menu"])
		assert.Contains(t, call.params["filters_url"], "/product/filters?")
	})

	t.Run("filters link keeps the list state", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, "/product?query=lamp&page=2", nil))
		require.Equal(t, http.StatusOK, w.Code)

		filtersURL := f.renderer.last(t).params["filters_url"].(string)
		assert.Contains(t, filtersURL, "referrer="+url.QueryEscape("/product?query=lamp&page=2"))
		assert.Contains(t, filtersURL, "query=lamp")
	})

	t.Run("search filters and sort reach the query", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		target := "/product?query=lamp&sort[price]=desc&sort[published]=asc&filters[published]=true&filters[unknown]=x"
		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, w.Code)

		require.NotNil(t, f.paginators.query)
		query, args, err := f.paginators.query.Clone().Limit(0).Offset(0).SelectSQL()
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT "id", "name", "price", "published" FROM "products" WHERE (CAST("name" AS TEXT) ILIKE $1) AND "published" = $2 ORDER BY "price" DESC, "id" ASC`,
			query)
		assert.Equal(t, []any{"%lamp%", true}, args)

		columns := f.renderer.last(t).params["columns"].([]crud.ColumnView)
		require.Len(t, columns, 4)
		assert.Equal(t, "DESC", columns[2].Direction)
		assert.Contains(t, columns[2].SortURL, "sort%5Bprice%5D=ASC")
	})

	t.Run("default sort applies without a request sort", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		cfg := productCrud{crud: crud.CrudConfig{DefaultSort: []orm.Order{{Column: "name", Direction: orm.Desc}}}}
		f.serve(t, cfg, httptest.NewRequest(http.MethodGet, "/product", nil))
		assert.Equal(t, []orm.Order{{Column: "name", Direction: orm.Desc}}, f.paginators.query.Orders())
	})

	t.Run("render failure is an error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.renderer.err = errors.New("template missing")

		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, "/product", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestControllerDetail(t *testing.T) {
	t.Parallel()

	t.Run("renders entity and actions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, "/product/2", nil))
		require.Equal(t, http.StatusOK, w.Code)

		call := f.renderer.last(t)
		assert.Equal(t, crud.TemplateDetail, call.path)
		entity := call.params["entity"].(crud.EntityDto)
		assert.Equal(t, "2", entity.ID)
		assert.Same(t, f.manager.items[2], entity.Instance)

		actions := call.params["actions"].([]crud.ActionDto)
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = a.Name
		}
		assert.Equal(t, []string{crud.ActionEdit, crud.ActionDelete, crud.ActionIndex}, names)
		assert.Equal(t, "/product/2/edit?referrer=%2Fproduct%2F2", actions[0].URL)
	})

	t.Run("missing entity is 404", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, "/product/99", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Product not found.", w.Body.String())
	})

	t.Run("malformed id is 404", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, "/product/abc", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("disabled action is not routed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		cfg := productCrud{crud: crud.CrudConfig{Actions: []string{crud.ActionIndex}}}
		w := f.serve(t, cfg, httptest.NewRequest(http.MethodGet, "/product/1", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, f.renderer.calls)
	})
}

func TestControllerEdit(t *testing.T) {
	t.Parallel()

	t.Run("shows bound form", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, "/product/1/edit", nil))
		require.Equal(t, http.StatusOK, w.Code)

		call := f.renderer.last(t)
		assert.Equal(t, crud.TemplateEdit, call.path)
		view := call.params["edit_form"].(form.View)
		assert.False(t, view.Submitted)
		require.Len(t, view.Fields, 3)
		assert.Equal(t, "Lamp", view.Fields[0].Value)
		assert.Contains(t, call.params, "delete_form")
	})

	t.Run("valid submission flushes once and redirects to referrer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		values := url.Values{
			"edit[name]":      {"Floor lamp"},
			"edit[price]":     {"12.5"},
			"edit[published]": {"on"},
		}
		w := f.serve(t, productCrud{}, postForm("/product/1/edit?referrer="+url.QueryEscape("/product?page=2"), values))

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/product?page=2", w.Header().Get("Location"))
		assert.Equal(t, &Product{ID: 1, Name: "Floor lamp", Price: 12.5, Published: true}, f.manager.items[1])
		assert.Equal(t, 1, f.manager.flushes)
		assert.Empty(t, f.manager.merged)
		assert.Equal(t, []string{"Product"}, f.paginators.invalidated)
	})

	t.Run("unsafe referrer falls back to index", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		values := url.Values{"edit[name]": {"Lamp"}, "edit[price]": {"10"}}
		w := f.serve(t, productCrud{}, postForm("/product/1/edit?referrer="+url.QueryEscape("//evil.example"), values))

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/product", w.Header().Get("Location"))
	})

	t.Run("invalid submission re-renders with 422", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		values := url.Values{"edit[name]": {"  "}, "edit[price]": {"cheap"}}
		w := f.serve(t, productCrud{}, postForm("/product/1/edit", values))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Zero(t, f.manager.flushes)
		view := f.renderer.last(t).params["edit_form"].(form.View)
		assert.True(t, view.Submitted)
		assert.False(t, view.Valid)
		assert.Equal(t, "Lamp", f.manager.items[1].Name)
	})

	t.Run("value the entity rejects re-renders with 422", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		values := url.Values{"edit[name]": {"Lamp"}, "edit[price]": {"on"}}
		w := f.serve(t, mistypedCrud{}, postForm("/product/1/edit", values))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Zero(t, f.manager.flushes)
		view := f.renderer.last(t).params["edit_form"].(form.View)
		assert.False(t, view.Valid)
		require.Len(t, view.Fields, 2)
		assert.Empty(t, view.Fields[0].Errors)
		assert.NotEmpty(t, view.Fields[1].Errors)
	})

	t.Run("update events surround a single flush", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		managed := f.manager.items[1]

		event.Subscribe(f.events, func(_ context.Context, e *crud.BeforeEntityUpdatedEvent) (event.Result[crud.Response], error) {
			assert.Same(t, managed, e.Instance)
			assert.Zero(t, f.manager.flushCount())
			f.manager.record("before")
			return event.Continue[crud.Response](), nil
		})
		event.Subscribe(f.events, func(_ context.Context, e *crud.AfterEntityUpdatedEvent) (event.Result[crud.Response], error) {
			assert.Same(t, managed, e.Instance)
			assert.Equal(t, 1, f.manager.flushCount())
			f.manager.record("after")
			return event.Continue[crud.Response](), nil
		})

		w := f.serve(t, productCrud{}, postForm("/product/1/edit", url.Values{"edit[name]": {"Desk lamp"}}))
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, []string{"before", "flush", "after"}, f.manager.log)
		assert.Equal(t, "Desk lamp", managed.Name)
	})

	t.Run("listener substitutes the instance", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		replacement := &Product{ID: 1, Name: "Replaced"}
		event.Subscribe(f.events, func(_ context.Context, e *crud.BeforeEntityUpdatedEvent) (event.Result[crud.Response], error) {
			e.Instance = replacement
			return event.Continue[crud.Response](), nil
		})
		var after any
		event.Subscribe(f.events, func(_ context.Context, e *crud.AfterEntityUpdatedEvent) (event.Result[crud.Response], error) {
			after = e.Instance
			return event.Continue[crud.Response](), nil
		})

		w := f.serve(t, productCrud{}, postForm("/product/1/edit", url.Values{"edit[name]": {"Lamp"}}))
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, []any{replacement}, f.manager.merged)
		assert.Same(t, replacement, after)
		assert.Equal(t, 1, f.manager.flushes)
	})

	t.Run("flush failure is 500", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.manager.flushErr = errors.New("deadlock")

		w := f.serve(t, productCrud{}, postForm("/product/1/edit", url.Values{"edit[name]": {"Lamp"}}))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, f.paginators.invalidated)
	})
}

func TestControllerDelete(t *testing.T) {
	t.Parallel()

	t.Run("removes and redirects", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		var deleted any
		event.Subscribe(f.events, func(_ context.Context, e *crud.AfterEntityDeletedEvent) (event.Result[crud.Response], error) {
			deleted = e.Instance
			return event.Continue[crud.Response](), nil
		})

		target := "/product/2/delete?referrer=" + url.QueryEscape("/product?query=desk")
		w := f.serve(t, productCrud{}, postForm(target, url.Values{"delete_form[_submit]": {"1"}}))

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/product?query=desk", w.Header().Get("Location"))
		assert.NotContains(t, f.manager.items, int64(2))
		assert.Equal(t, &Product{ID: 2, Name: "Desk", Price: 120, Published: true}, deleted)
		assert.Equal(t, []string{"Product"}, f.paginators.invalidated)
	})

	t.Run("delete events surround a single flush", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		event.Subscribe(f.events, func(context.Context, *crud.BeforeEntityDeletedEvent) (event.Result[crud.Response], error) {
			f.manager.record("before")
			return event.Continue[crud.Response](), nil
		})
		event.Subscribe(f.events, func(context.Context, *crud.AfterEntityDeletedEvent) (event.Result[crud.Response], error) {
			f.manager.record("after")
			return event.Continue[crud.Response](), nil
		})

		w := f.serve(t, productCrud{}, postForm("/product/2/delete", url.Values{"delete_form[_submit]": {"1"}}))
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, []string{"before", "flush", "after"}, f.manager.log)
	})

	t.Run("redirect target", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			referrer string
			want     string
		}{
			{"safe referrer", "/product?page=2", "/product?page=2"},
			{"no referrer", "", "/product"},
			{"protocol relative", "//evil.example/steal", "/product"},
			{"absolute", "https://evil.example/", "/product"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				f := newFixture(t)

				target := "/product/1/delete"
				if tt.referrer != "" {
					target += "?referrer=" + url.QueryEscape(tt.referrer)
				}
				w := f.serve(t, productCrud{}, postForm(target, url.Values{"delete_form[_submit]": {"1"}}))
				require.Equal(t, http.StatusSeeOther, w.Code)
				assert.Equal(t, tt.want, w.Header().Get("Location"))
			})
		}
	})

	t.Run("htmx request gets trigger and client redirect", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := postForm("/product/2/delete", url.Values{"delete_form[_submit]": {"1"}})
		req.Header.Set("HX-Request", "true")
		w := f.serve(t, productCrud{}, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "/product", w.Header().Get("HX-Redirect"))
		assert.Equal(t, crud.TriggerDeleted, w.Header().Get("HX-Trigger"))
	})

	t.Run("requires the delete form", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		w := f.serve(t, productCrud{}, postForm("/product/2/delete", url.Values{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, f.manager.items, int64(2))
	})

	t.Run("listener vetoes", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		event.Subscribe(f.events, func(_ context.Context, e *crud.BeforeEntityDeletedEvent) (event.Result[crud.Response], error) {
			return event.Stop(crud.ErrorResponse(http.StatusConflict, "Product is referenced by orders.")), nil
		})

		w := f.serve(t, productCrud{}, postForm("/product/2/delete", url.Values{"delete_form[_submit]": {"1"}}))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Product is referenced by orders.", w.Body.String())
		assert.Empty(t, f.manager.removed)
		assert.Zero(t, f.manager.flushes)
	})
}

func TestControllerBatchDelete(t *testing.T) {
	t.Parallel()

	t.Run("removes selected ids in one flush", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		values := url.Values{
			"batch_form[entity]": {"Product"},
			"batch_form[ids][]":  {"1", "2", "99"},
		}
		w := f.serve(t, productCrud{}, postForm("/product/batch?referrer=%2Fproduct%3Fpage%3D1", values))

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/product?page=1", w.Header().Get("Location"))
		assert.Len(t, f.manager.removed, 2)
		assert.Equal(t, 1, f.manager.flushes)
		assert.Empty(t, f.manager.items)
	})

	t.Run("redirect target", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			referrer string
			want     string
		}{
			{"safe referrer", "/product?query=desk", "/product?query=desk"},
			{"no referrer", "", "/product"},
			{"protocol relative", "//evil.example", "/product"},
			{"backslash trick", `/\evil.example`, "/product"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				f := newFixture(t)

				target := "/product/batch"
				if tt.referrer != "" {
					target += "?referrer=" + url.QueryEscape(tt.referrer)
				}
				values := url.Values{
					"batch_form[entity]": {"Product"},
					"batch_form[ids][]":  {"2"},
				}
				w := f.serve(t, productCrud{}, postForm(target, values))
				require.Equal(t, http.StatusSeeOther, w.Code)
				assert.Equal(t, tt.want, w.Header().Get("Location"))
				assert.Equal(t, 1, f.manager.flushes)
			})
		}
	})

	t.Run("foreign entity is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		values := url.Values{
			"batch_form[entity]": {"Category"},
			"batch_form[ids][]":  {"1"},
		}
		w := f.serve(t, productCrud{}, postForm("/product/batch", values))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, f.manager.removed)
	})

	t.Run("malformed id is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		values := url.Values{
			"batch_form[entity]": {"Product"},
			"batch_form[ids][]":  {"1", "one"},
		}
		w := f.serve(t, productCrud{}, postForm("/product/batch", values))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, f.manager.flushes)
	})
}

func TestControllerFilters(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	referrer := "/product?query=lamp&sort[price]=desc&filters[published]=false&page=3"
	target := "/product/filters?filters[published]=true&filters[name]=desk&referrer=" + url.QueryEscape(referrer)
	w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, w.Code)

	call := f.renderer.last(t)
	assert.Equal(t, crud.TemplateFilters, call.path)
	assert.NotContains(t, call.params, "menu")

	view := call.params["filters_form"].(form.View)
	assert.Equal(t, http.MethodGet, view.Method)
	assert.Equal(t, "/product", view.Action)
	assert.Equal(t, []form.HiddenView{
		{Name: "query", Value: "lamp"},
		{Name: "sort[price]", Value: "desc"},
	}, view.Hidden)
	assert.True(t, view.Submitted)

	require.Len(t, view.Fields, 2)
	name, published := view.Fields[0], view.Fields[1]

	assert.Equal(t, "name", name.Name)
	assert.Equal(t, "filters[name]", name.FullName)
	assert.Equal(t, "desk", name.Value)
	assert.Empty(t, name.Errors)

	assert.Equal(t, "published", published.Name)
	assert.Equal(t, string(field.TypeChoice), published.Type)
	assert.Equal(t, "true", published.Value)
	require.Len(t, published.Choices, 2)
	assert.Equal(t, form.ChoiceView{Value: "true", Label: "Yes", Selected: true}, published.Choices[0])
	assert.Equal(t, form.ChoiceView{Value: "false", Label: "No"}, published.Choices[1])
}

func TestControllerEvents(t *testing.T) {
	t.Parallel()

	t.Run("before action short-circuits every service", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name   string
			action string
			req    func() *http.Request
		}{
			{"index", crud.ActionIndex, func() *http.Request { return httptest.NewRequest(http.MethodGet, "/product", nil) }},
			{"detail", crud.ActionDetail, func() *http.Request { return httptest.NewRequest(http.MethodGet, "/product/1", nil) }},
			{"edit", crud.ActionEdit, func() *http.Request {
				return postForm("/product/1/edit", url.Values{"edit[name]": {"Changed"}})
			}},
			{"delete", crud.ActionDelete, func() *http.Request {
				return postForm("/product/1/delete", url.Values{"delete_form[_submit]": {"1"}})
			}},
			{"batch delete", crud.ActionBatchDelete, func() *http.Request {
				return postForm("/product/batch", url.Values{"batch_form[entity]": {"Product"}, "batch_form[ids][]": {"1", "2"}})
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				f := newFixture(t)

				var seen []string
				event.Subscribe(f.events, func(_ context.Context, e *crud.BeforeCrudActionEvent) (event.Result[crud.Response], error) {
					seen = append(seen, e.Context.Action)
					return event.Stop(crud.RedirectResponse("/login")), nil
				})

				w := f.serve(t, productCrud{}, tt.req())
				assert.Equal(t, http.StatusSeeOther, w.Code)
				assert.Equal(t, "/login", w.Header().Get("Location"))
				assert.Equal(t, []string{tt.action}, seen)

				assert.Zero(t, f.entities.calls)
				assert.Zero(t, f.forms.calls)
				assert.Nil(t, f.paginators.query)
				assert.Empty(t, f.renderer.calls)
				assert.Empty(t, f.manager.removed)
				assert.Zero(t, f.manager.flushes)
				assert.Equal(t, "Lamp", f.manager.items[1].Name)
			})
		}
	})

	t.Run("after action edits parameters before the hook", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		event.Subscribe(f.events, func(_ context.Context, e *crud.AfterCrudActionEvent) (event.Result[crud.Response], error) {
			e.Parameters["notice"] = "from listener"
			return event.Continue[crud.Response](), nil
		})
		cfg := hookedCrud{productCrud{params: func(action string, p crud.Parameters) crud.Parameters {
			p["hook_saw"] = p["notice"]
			delete(p, "menu")
			return p
		}}}

		w := f.serve(t, cfg, httptest.NewRequest(http.MethodGet, "/product/1", nil))
		require.Equal(t, http.StatusOK, w.Code)

		params := f.renderer.last(t).params
		assert.Equal(t, "from listener", params["hook_saw"])
		assert.NotContains(t, params, "menu")
	})

	t.Run("listener error is 500", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		event.Subscribe(f.events, func(context.Context, *crud.BeforeCrudActionEvent) (event.Result[crud.Response], error) {
			return event.Continue[crud.Response](), errors.New("listener failed")
		})

		w := f.serve(t, productCrud{}, httptest.NewRequest(http.MethodGet, "/product", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	type categoryCrud struct{ productCrud }

	newDashboard := func(t *testing.T, f *fixture) *crud.Dashboard {
		t.Helper()
		d, err := crud.NewDashboard(f.services, crud.WithPrefix("/admin"), crud.WithTitle("Shop"))
		require.NoError(t, err)
		require.NoError(t, d.Add(productCrud{}))
		return d
	}

	t.Run("landing page lists cruds", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		d := newDashboard(t, f)

		w := httptest.NewRecorder()
		internal.New(internal.WithHandlers(d)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/", nil))
		require.Equal(t, http.StatusOK, w.Code)

		call := f.renderer.last(t)
		assert.Equal(t, crud.TemplateDashboard, call.path)
		assert.Equal(t, crud.DashboardView{Title: "Shop", URL: "/admin/"}, call.params["dashboard"])
		assert.Equal(t, []crud.MenuItem{{Label: "Products", URL: "/admin/product"}}, call.params["cruds"])
	})

	t.Run("controllers share the menu", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		d := newDashboard(t, f)

		w := httptest.NewRecorder()
		internal.New(internal.WithHandlers(d)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/product/1", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []crud.MenuItem{{Label: "Products", URL: "/admin/product", Active: true}}, f.renderer.last(t).params["menu"])
	})

	t.Run("duplicate entity", func(t *testing.T) {
		t.Parallel()
		d := newDashboard(t, newFixture(t))

		assert.ErrorIs(t, d.Add(categoryCrud{}), crud.ErrDuplicateCrud)
		assert.Len(t, d.Controllers(), 1)
	})
}
