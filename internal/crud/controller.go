package crud

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/crudforge/internal"
	"github.com/dmitrymomot/crudforge/pkg/event"
	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/form"
	"github.com/dmitrymomot/crudforge/pkg/htmx"
	"github.com/dmitrymomot/crudforge/pkg/logger"
	"github.com/dmitrymomot/crudforge/pkg/orm"
)

type options struct {
	log       *slog.Logger
	menu      func(active string) []MenuItem
	dashboard DashboardConfig
}

// Option configures a Controller or a Dashboard.
type Option func(*options)

// WithPrefix mounts the pages under prefix, e.g. "/admin".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
		if prefix != "" && !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		o.dashboard.Prefix = prefix
	}
}

// WithTitle sets the dashboard title.
func WithTitle(title string) Option {
	return func(o *options) { o.dashboard.Title = title }
}

// WithLogger sets the logger used outside of request handling.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func withMenu(fn func(active string) []MenuItem) Option {
	return func(o *options) { o.menu = fn }
}

func buildOptions(opts []Option) *options {
	o := &options{log: logger.NewNope(), dashboard: DashboardConfig{Title: "Admin"}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Controller serves the pages of one CRUD.
type Controller struct {
	cfg      Configurator
	services Services
	events   *Dispatcher
	log      *slog.Logger
	menu     func(active string) []MenuItem
	crud     CrudConfig
	pages    pages
	urls     URLGenerator
	board    DashboardConfig
}

// NewController validates services and the CRUD configuration.
func NewController(cfg Configurator, services Services, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil configurator", ErrInvalidConfig)
	}
	if err := services.validate(); err != nil {
		return nil, err
	}
	crud := cfg.ConfigureCrud().withDefaults()
	if crud.Entity == "" || crud.Path == "" {
		return nil, fmt.Errorf("%w: entity name is required", ErrInvalidConfig)
	}

	o := buildOptions(opts)
	c := &Controller{
		cfg:      cfg,
		services: services,
		events:   services.Events,
		log:      o.log,
		menu:     o.menu,
		crud:     crud,
		pages:    resolvePages(cfg, crud),
		urls:     URLGenerator{Prefix: o.dashboard.Prefix, Path: crud.Path},
		board:    o.dashboard,
	}
	if c.events == nil {
		c.events = NewDispatcher(event.WithLogger(o.log))
	}
	if c.menu == nil {
		c.menu = func(active string) []MenuItem {
			return []MenuItem{{Label: crud.PluralLabel, URL: c.urls.Index(), Active: active == crud.Entity}}
		}
	}
	index := cfg.ConfigureFields(ActionIndex)
	if len(c.pages.index.Filters) == 0 {
		c.pages.index.Filters = index.Filterable()
	}
	if len(c.pages.index.SearchFields) == 0 {
		c.pages.index.SearchFields = index.Searchable()
	}
	return c, nil
}

// Config returns the resolved CRUD configuration.
func (c *Controller) Config() CrudConfig { return c.crud }

// URLs returns the URL generator of the CRUD.
func (c *Controller) URLs() URLGenerator { return c.urls }

// Routes registers the enabled actions under the dashboard prefix.
func (c *Controller) Routes(r internal.Router) {
	if c.board.Prefix == "" {
		c.routes(r)
		return
	}
	r.Route(c.board.Prefix, c.routes)
}

func (c *Controller) routes(r internal.Router) {
	r.Route("/"+c.crud.Path, func(r internal.Router) {
		if c.crud.IsEnabled(ActionIndex) {
			r.GET("/", c.Index)
		}
		if c.crud.IsEnabled(ActionFilters) {
			r.GET("/filters", c.Filters)
		}
		if c.crud.IsEnabled(ActionBatchDelete) {
			r.POST("/batch", c.BatchDelete)
		}
		if c.crud.IsEnabled(ActionDetail) {
			r.GET("/{id}", c.Detail)
		}
		if c.crud.IsEnabled(ActionEdit) {
			r.GET("/{id}/edit", c.Edit)
			r.POST("/{id}/edit", c.Edit)
		}
		if c.crud.IsEnabled(ActionDelete) {
			r.POST("/{id}/delete", c.Delete)
		}
	})
}

func (c *Controller) newContext(ctx internal.Context, action string) *ApplicationContext {
	fields := c.cfg.ConfigureFields(action)
	if action == ActionFilters {
		fields = c.pages.index.Filters.Clone()
	}
	return &ApplicationContext{
		Request:   ctx.Request(),
		Manager:   c.services.Managers.Manager(),
		Search:    ParseSearch(ctx.Request()),
		Dashboard: c.board,
		URLs:      c.urls,
		Crud:      c.crud,
		Action:    action,
		EntityID:  ctx.Param("id"),
		Assets:    c.pages.assets,
		IndexPage: c.pages.index,
		Detail:    c.pages.detail,
		FormPage:  c.pages.form,
		Fields:    fields,
	}
}

// Index renders one page of the entity list.
func (c *Controller) Index(ctx internal.Context) error {
	app := c.newContext(ctx, ActionIndex)
	if stop, err := publish(ctx, c.events, &BeforeCrudActionEvent{Context: app}); stop {
		return err
	}

	base, err := c.services.Entities.Create(ctx.Context(), app, app.Fields)
	if err != nil {
		return c.entityError(err)
	}
	qb, err := c.services.Repository.CreateQueryBuilder(app, app.Search, base)
	if err != nil {
		return internal.ErrBadRequest("Invalid list query.", internal.WithError(err))
	}
	page, err := c.services.Paginators.Create(ctx.Context(), qb, app.Search.Page, app.IndexPage.PageSize)
	if err != nil {
		return fmt.Errorf("crud: paginate %s: %w", base.Name, err)
	}
	entities, err := c.services.Entities.CreateAll(ctx.Context(), base, page.Results)
	if err != nil {
		return err
	}
	for i := range entities {
		entities[i] = entities[i].With(WithActions(rowActions(app, entities[i].ID)...))
	}

	params := Parameters{
		"entities":             entities,
		"paginator":            page,
		"batch_form":           c.services.Forms.CreateBatchForm(app).CreateView(),
		"delete_form_template": c.services.Forms.CreateDeleteForm(app, IDPlaceholder).CreateView(),
		"columns":              columnViews(app, base.Fields),
		"pages":                pageLinks(app, page),
		"search":               app.Search,
	}
	if page.HasPrevious {
		params["previous_url"] = app.URLs.Search(app.Search.WithPage(page.PreviousPage))
	}
	if page.HasNext {
		params["next_url"] = app.URLs.Search(app.Search.WithPage(page.NextPage))
	}
	if c.crud.IsEnabled(ActionFilters) && len(app.IndexPage.Filters) > 0 {
		params["filters_url"] = app.URLs.Filters(app.Search, ctx.Request().URL.RequestURI())
	}
	return c.render(ctx, app, http.StatusOK, TemplateIndex, params, htmx.WithPushURL(app.URLs.Search(app.Search)))
}

// Detail renders one entity with the configured page actions.
func (c *Controller) Detail(ctx internal.Context) error {
	app := c.newContext(ctx, ActionDetail)
	if stop, err := publish(ctx, c.events, &BeforeCrudActionEvent{Context: app}); stop {
		return err
	}

	entity, err := c.services.Entities.Create(ctx.Context(), app, app.Fields)
	if err != nil {
		return c.entityError(err)
	}

	params := Parameters{
		"actions":     pageActions(app, entity.ID),
		"entity":      entity,
		"delete_form": c.services.Forms.CreateDeleteForm(app, entity.ID).CreateView(),
	}
	return c.render(ctx, app, http.StatusOK, TemplateDetail, params)
}

// Edit renders the edit form and applies valid submissions. A valid
// submission is flushed once and redirected; an invalid one is rendered
// again with status 422.
func (c *Controller) Edit(ctx internal.Context) error {
	app := c.newContext(ctx, ActionEdit)
	if stop, err := publish(ctx, c.events, &BeforeCrudActionEvent{Context: app}); stop {
		return err
	}

	entity, err := c.services.Entities.Create(ctx.Context(), app, app.Fields)
	if err != nil {
		return c.entityError(err)
	}
	instance := entity.Instance

	editForm := c.services.Forms.CreateEditForm(app, entity)
	if err := editForm.HandleRequest(ctx.Request()); err != nil {
		switch {
		case errors.Is(err, form.ErrInvalidRequest):
			return internal.ErrBadRequest("Invalid form submission.", internal.WithError(err))
		case errors.Is(err, form.ErrBindFailed):
			// The field already carries the error; the form renders again below.
			ctx.LogWarn("form value rejected by entity", slog.String("entity", entity.Name), slog.Any("error", err))
		default:
			return err
		}
	}

	if editForm.IsSubmitted() && editForm.IsValid() {
		before := &BeforeEntityUpdatedEvent{Context: app, Instance: instance}
		if stop, err := publish(ctx, c.events, before); stop {
			return err
		}
		instance = before.Instance

		if err := c.updateEntity(ctx, app, entity, instance); err != nil {
			return err
		}
		ctx.LogInfo("entity updated", slog.String("entity", entity.Name), slog.String("id", entity.ID))

		if stop, err := publish(ctx, c.events, &AfterEntityUpdatedEvent{Context: app, Instance: instance}); stop {
			return err
		}
		htmx.Trigger(ctx.Response(), ctx.Request(), TriggerUpdated)
		return ctx.Redirect(http.StatusSeeOther, app.RedirectTarget())
	}

	status := http.StatusOK
	if editForm.IsSubmitted() {
		status = http.StatusUnprocessableEntity
	}
	params := Parameters{
		"action":    ActionEdit,
		"edit_form": editForm.CreateView(),
		"entity":    entity.With(WithInstance(instance)),
	}
	if c.crud.IsEnabled(ActionDelete) && !app.FormPage.HideDelete {
		params["delete_form"] = c.services.Forms.CreateDeleteForm(app, entity.ID).CreateView()
	}
	return c.render(ctx, app, status, TemplateEdit, params)
}

// updateEntity merges a substituted instance into the unit of work and
// flushes it once.
func (c *Controller) updateEntity(ctx internal.Context, app *ApplicationContext, entity EntityDto, instance any) error {
	if !sameInstance(instance, entity.Instance) {
		if _, err := app.Manager.Merge(entity.Metadata, instance); err != nil {
			return fmt.Errorf("crud: update %s: %w", entity.Name, err)
		}
	}
	if err := app.Manager.Flush(ctx.Context()); err != nil {
		return fmt.Errorf("crud: update %s: %w", entity.Name, err)
	}
	c.services.Paginators.Invalidate(ctx.Context(), entity.Name)
	return nil
}

// Filters renders the standalone filters form. The query string is the
// filter state, so the form echoes it back.
func (c *Controller) Filters(ctx internal.Context) error {
	app := c.newContext(ctx, ActionFilters)

	filters := c.services.Forms.CreateFiltersForm(app, app.Fields)
	if err := filters.HandleRequest(ctx.Request()); err != nil {
		return internal.ErrBadRequest("Invalid filters.", internal.WithError(err))
	}

	params := Parameters{"filters_form": filters.CreateView()}
	if tp, ok := c.cfg.(TemplateParametersConfigurator); ok {
		params = tp.TemplateParameters(ActionFilters, params)
	}
	return c.renderTemplate(ctx, http.StatusOK, app.TemplatePath(TemplateFilters), params)
}

// Delete removes one entity.
func (c *Controller) Delete(ctx internal.Context) error {
	app := c.newContext(ctx, ActionDelete)
	if stop, err := publish(ctx, c.events, &BeforeCrudActionEvent{Context: app}); stop {
		return err
	}

	entity, err := c.services.Entities.Create(ctx.Context(), app, app.Fields)
	if err != nil {
		return c.entityError(err)
	}
	deleteForm := c.services.Forms.CreateDeleteForm(app, entity.ID)
	if err := deleteForm.HandleRequest(ctx.Request()); err != nil || !deleteForm.IsValid() {
		return internal.ErrBadRequest("Invalid delete request.", internal.WithError(err))
	}

	before := &BeforeEntityDeletedEvent{Context: app, Instance: entity.Instance}
	if stop, err := publish(ctx, c.events, before); stop {
		return err
	}
	if err := app.Manager.Remove(entity.Metadata, entity.Instance); err != nil {
		return fmt.Errorf("crud: delete %s: %w", entity.Name, err)
	}
	if err := app.Manager.Flush(ctx.Context()); err != nil {
		return fmt.Errorf("crud: delete %s: %w", entity.Name, err)
	}
	c.services.Paginators.Invalidate(ctx.Context(), entity.Name)
	ctx.LogInfo("entity deleted", slog.String("entity", entity.Name), slog.String("id", entity.ID))

	if stop, err := publish(ctx, c.events, &AfterEntityDeletedEvent{Context: app, Instance: entity.Instance}); stop {
		return err
	}
	htmx.Trigger(ctx.Response(), ctx.Request(), TriggerDeleted)
	return ctx.Redirect(http.StatusSeeOther, app.RedirectTarget())
}

// BatchDelete removes every selected entity in one flush. Ids that no
// longer exist are skipped.
func (c *Controller) BatchDelete(ctx internal.Context) error {
	app := c.newContext(ctx, ActionBatchDelete)
	if stop, err := publish(ctx, c.events, &BeforeCrudActionEvent{Context: app}); stop {
		return err
	}

	batch := c.services.Forms.CreateBatchForm(app)
	if err := batch.HandleRequest(ctx.Request()); err != nil || !batch.IsValid() {
		return internal.ErrBadRequest("Invalid batch request.", internal.WithError(err))
	}
	if batch.Hidden("entity") != c.crud.Entity {
		return internal.ErrBadRequest("Batch form does not belong to this entity.")
	}

	base, err := c.services.Entities.Create(ctx.Context(), app, field.Set{})
	if err != nil {
		return c.entityError(err)
	}

	var removed []any
	for _, raw := range batch.List("ids") {
		id, err := base.Metadata.ParseID(raw)
		if err != nil {
			return internal.ErrBadRequest("Invalid id in batch request.", internal.WithError(err))
		}
		instance, err := app.Manager.Find(ctx.Context(), base.Metadata, id)
		if orm.IsNotFound(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("crud: batch delete %s: %w", base.Name, err)
		}
		if stop, err := publish(ctx, c.events, &BeforeEntityDeletedEvent{Context: app, Instance: instance}); stop {
			return err
		}
		if err := app.Manager.Remove(base.Metadata, instance); err != nil {
			return fmt.Errorf("crud: batch delete %s: %w", base.Name, err)
		}
		removed = append(removed, instance)
	}

	if len(removed) > 0 {
		if err := app.Manager.Flush(ctx.Context()); err != nil {
			return fmt.Errorf("crud: batch delete %s: %w", base.Name, err)
		}
		c.services.Paginators.Invalidate(ctx.Context(), base.Name)
		ctx.LogInfo("entities deleted", slog.String("entity", base.Name), slog.Int("count", len(removed)))
	}
	for _, instance := range removed {
		if stop, err := publish(ctx, c.events, &AfterEntityDeletedEvent{Context: app, Instance: instance}); stop {
			return err
		}
	}
	if len(removed) > 0 {
		htmx.Trigger(ctx.Response(), ctx.Request(), TriggerDeleted)
	}
	return ctx.Redirect(http.StatusSeeOther, app.RedirectTarget())
}

// render publishes the after-action event and renders the template at path
// with the resulting parameters.
func (c *Controller) render(ctx internal.Context, app *ApplicationContext, status int, path string, params Parameters, opts ...htmx.RenderOption) error {
	c.common(app, params)

	after := &AfterCrudActionEvent{Context: app, Parameters: params}
	if stop, err := publish(ctx, c.events, after); stop {
		return err
	}
	params = after.Parameters
	if tp, ok := c.cfg.(TemplateParametersConfigurator); ok {
		params = tp.TemplateParameters(app.Action, params)
	}
	return c.renderTemplate(ctx, status, app.TemplatePath(path), params, opts...)
}

func (c *Controller) common(app *ApplicationContext, params Parameters) {
	defaults := Parameters{
		"action": app.Action,
		"crud": CrudView{
			Entity:      c.crud.Entity,
			Label:       c.crud.Label,
			PluralLabel: c.crud.PluralLabel,
			IndexURL:    c.urls.Index(),
			Searchable:  len(app.IndexPage.SearchFields) > 0,
		},
		"assets":    app.Assets,
		"dashboard": DashboardView{Title: c.board.Title, URL: c.board.URL()},
		"menu":      c.menu(c.crud.Entity),
	}
	for k, v := range defaults {
		if _, set := params[k]; !set {
			params[k] = v
		}
	}
}

// renderTemplate renders into a buffer first so a failing template still
// produces a clean error response. opts only apply to HTMX requests.
func (c *Controller) renderTemplate(ctx internal.Context, status int, path string, params Parameters, opts ...htmx.RenderOption) error {
	var buf bytes.Buffer
	if err := c.services.Renderer.Render(ctx.Context(), &buf, path, map[string]any(params)); err != nil {
		return err
	}
	return ctx.Render(status, templ.Raw(buf.String()), opts...)
}

func (c *Controller) entityError(err error) error {
	if errors.Is(err, orm.ErrNotFound) || errors.Is(err, orm.ErrInvalidID) {
		return internal.ErrNotFound(c.crud.Label+" not found.", internal.WithError(err))
	}
	return err
}

// publish dispatches e and reports whether the action must stop. A stopped
// event hands the reply to the listener's Response.
func publish[E any](ctx internal.Context, bus *Dispatcher, e *E) (bool, error) {
	res, err := event.Publish[E, Response](ctx.Context(), bus, e)
	if err != nil {
		return true, err
	}
	if !res.Stopped() {
		return false, nil
	}
	if respond := res.Value(); respond != nil {
		return true, respond(ctx)
	}
	return true, nil
}

func sameInstance(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != reflect.Pointer || vb.Kind() != reflect.Pointer {
		return !va.IsValid() && !vb.IsValid()
	}
	return va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
}
