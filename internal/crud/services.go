package crud

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/form"
	"github.com/dmitrymomot/crudforge/pkg/orm"
	"github.com/dmitrymomot/crudforge/pkg/paginator"
)

// EntityFactory builds entity DTOs. Create builds the single base DTO of an
// action, loading the instance through app.Manager when app.EntityID is set;
// CreateAll derives one DTO per listed instance from the base.
type EntityFactory interface {
	Create(ctx context.Context, app *ApplicationContext, fields field.Set) (EntityDto, error)
	CreateAll(ctx context.Context, base EntityDto, instances []any) ([]EntityDto, error)
}

// EntityRepository builds the list query of the index page.
type EntityRepository interface {
	CreateQueryBuilder(app *ApplicationContext, search SearchDto, entity EntityDto) (*orm.QueryBuilder, error)
}

// PaginatorFactory runs a list query one page at a time.
// *paginator.Factory satisfies it.
type PaginatorFactory interface {
	Create(ctx context.Context, qb *orm.QueryBuilder, page, pageSize int) (*paginator.Paginator, error)
	Invalidate(ctx context.Context, entity string)
}

// FormFactory builds the forms of the CRUD pages.
type FormFactory interface {
	CreateEditForm(app *ApplicationContext, entity EntityDto) *form.Form
	CreateDeleteForm(app *ApplicationContext, id string) *form.Form
	CreateFiltersForm(app *ApplicationContext, fields field.Set) *form.Form
	CreateBatchForm(app *ApplicationContext) *form.Form
}

// TemplateRenderer renders a template path with parameters.
// *render.Engine satisfies it.
type TemplateRenderer interface {
	Render(ctx context.Context, w io.Writer, path string, params map[string]any) error
}

// ObjectManager tracks the entities of one request and writes their changes
// on Flush. *orm.UnitOfWork satisfies it.
type ObjectManager interface {
	Find(ctx context.Context, meta *orm.Metadata, id any) (any, error)
	Merge(meta *orm.Metadata, instance any) (any, error)
	Remove(meta *orm.Metadata, instance any) error
	Flush(ctx context.Context) error
}

// ManagerRegistry hands out a fresh ObjectManager per request.
type ManagerRegistry interface {
	Manager() ObjectManager
}

// ManagerRegistryFunc adapts a function to ManagerRegistry.
type ManagerRegistryFunc func() ObjectManager

func (f ManagerRegistryFunc) Manager() ObjectManager { return f() }

// Services are the collaborators of a Controller. Events is optional.
type Services struct {
	Entities   EntityFactory
	Repository EntityRepository
	Paginators PaginatorFactory
	Forms      FormFactory
	Renderer   TemplateRenderer
	Managers   ManagerRegistry
	Events     *Dispatcher
}

func (s Services) validate() error {
	var errs []error
	check := func(ok bool, name string) {
		if !ok {
			errs = append(errs, errors.New(name))
		}
	}
	check(s.Entities != nil, "entity factory")
	check(s.Repository != nil, "entity repository")
	check(s.Paginators != nil, "paginator factory")
	check(s.Forms != nil, "form factory")
	check(s.Renderer != nil, "template renderer")
	check(s.Managers != nil, "manager registry")
	if len(errs) > 0 {
		return errors.Join(ErrMissingService, errors.Join(errs...))
	}
	return nil
}

// NewServices wires the orm backed defaults around repo and registry.
func NewServices(repo *orm.Repository, registry *orm.Registry, paginators *paginator.Factory, renderer TemplateRenderer, events *Dispatcher) Services {
	return Services{
		Entities:   NewEntityFactory(registry),
		Repository: NewEntityRepository(repo),
		Paginators: paginators,
		Forms:      NewFormFactory(),
		Renderer:   renderer,
		Managers:   ManagerRegistryFunc(func() ObjectManager { return repo.UnitOfWork() }),
		Events:     events,
	}
}
