package crud

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/form"
	"github.com/dmitrymomot/crudforge/pkg/orm"
)

type entityFactory struct {
	registry *orm.Registry
}

// NewEntityFactory builds DTOs for entities described in registry.
func NewEntityFactory(registry *orm.Registry) EntityFactory {
	return &entityFactory{registry: registry}
}

func (f *entityFactory) Create(ctx context.Context, app *ApplicationContext, fields field.Set) (EntityDto, error) {
	meta, err := f.registry.Lookup(app.Crud.Entity)
	if err != nil {
		return EntityDto{}, err
	}
	dto := EntityDto{
		Metadata:   meta,
		Name:       meta.Name,
		FQCN:       meta.TypeName,
		PrimaryKey: meta.PrimaryKey,
	}
	if app.EntityID == "" {
		return dto.With(WithFields(fields)), nil
	}
	if app.Manager == nil {
		return EntityDto{}, ErrNoManager
	}

	id, err := meta.ParseID(app.EntityID)
	if err != nil {
		return EntityDto{}, err
	}
	instance, err := app.Manager.Find(ctx, meta, id)
	if err != nil {
		return EntityDto{}, err
	}
	return dto.With(WithFields(fields), WithInstance(instance)), nil
}

func (f *entityFactory) CreateAll(_ context.Context, base EntityDto, instances []any) ([]EntityDto, error) {
	out := make([]EntityDto, 0, len(instances))
	for _, instance := range instances {
		if base.Metadata != nil && !base.Metadata.Owns(instance) {
			return nil, fmt.Errorf("%w: %T is not *%s", orm.ErrTypeMismatch, instance, base.Name)
		}
		out = append(out, base.With(WithInstance(instance)))
	}
	return out, nil
}

type entityRepository struct {
	repo *orm.Repository
}

// NewEntityRepository builds list queries on repo.
func NewEntityRepository(repo *orm.Repository) EntityRepository {
	return &entityRepository{repo: repo}
}

// CreateQueryBuilder applies, in order: the free-text search over the
// searchable columns, the filters over the filterable fields, and the
// requested sort (sortable index fields only) or the configured default.
// Filter values that do not convert to the field type are ignored.
func (r *entityRepository) CreateQueryBuilder(app *ApplicationContext, search SearchDto, entity EntityDto) (*orm.QueryBuilder, error) {
	if entity.Metadata == nil {
		return nil, fmt.Errorf("%w: %s has no metadata", orm.ErrUnknownEntity, entity.Name)
	}
	qb := r.repo.QueryBuilder(entity.Metadata)

	qb.Search(search.Query, app.IndexPage.SearchFields...)

	for _, name := range slices.Sorted(maps.Keys(search.Filters)) {
		f, ok := app.IndexPage.Filters.Find(name)
		if !ok {
			continue
		}
		if _, known := entity.Metadata.Column(name); !known {
			continue
		}
		raw := search.Filters[name]
		switch f.Type {
		case field.TypeText, field.TypeTextarea, field.TypeEmail:
			qb.Search(raw, name)
			continue
		case field.TypeID:
			if name == entity.Metadata.PrimaryKey {
				if id, err := entity.Metadata.ParseID(raw); err == nil {
					qb.Where(name, "=", id)
				}
				continue
			}
			f.Type = field.TypeInteger
		}
		f.Required = false
		v, errs := form.Convert(f, raw)
		if len(errs) > 0 || v == nil {
			continue
		}
		qb.Where(name, "=", v)
	}

	var applied bool
	for _, o := range search.Orders() {
		if entity.Fields.IsSortable(o.Column) {
			qb.OrderBy(o.Column, o.Direction)
			applied = true
		}
	}
	if !applied {
		for _, o := range app.Crud.DefaultSort {
			qb.OrderBy(o.Column, o.Direction)
		}
	}
	return qb, qb.Err()
}

type formFactory struct{}

// NewFormFactory returns the default FormFactory.
func NewFormFactory() FormFactory { return formFactory{} }

// Form names, also the prefixes of submitted keys.
const (
	FormEdit    = "edit"
	FormDelete  = "delete_form"
	FormFilters = "filters"
	FormBatch   = "batch_form"
)

func (formFactory) CreateEditForm(app *ApplicationContext, entity EntityDto) *form.Form {
	opts := []form.Option{
		form.WithFields(entity.Fields),
		form.WithAction(WithReferrer(app.URLs.Edit(entity.ID), safeOr(app.Search.Referrer, ""))),
		form.WithSubmitLabel(app.FormPage.SubmitLabel),
	}
	if entity.Metadata != nil && entity.Instance != nil {
		opts = append(opts, form.WithData(entity.Instance, entity.Metadata))
	}
	return form.New(FormEdit, opts...)
}

func (formFactory) CreateDeleteForm(app *ApplicationContext, id string) *form.Form {
	back := app.URLs.Index()
	if app.Action == ActionIndex {
		back = app.URLs.Search(app.Search)
	}
	return form.New(FormDelete,
		form.WithAction(WithReferrer(app.URLs.Delete(id), back)),
		form.WithSubmitLabel("Delete"),
	)
}

// CreateFiltersForm builds the GET form of the filters overlay. Boolean
// fields become Yes/No choices so that "not filtered" stays selectable.
func (formFactory) CreateFiltersForm(app *ApplicationContext, fields field.Set) *form.Form {
	inputs := make(field.Set, 0, len(fields))
	for _, f := range fields {
		if f.Type == field.TypeBoolean {
			label := f.DisplayLabel()
			f = field.ChoiceOf(f.Name,
				field.Choice{Value: "true", Label: "Yes"},
				field.Choice{Value: "false", Label: "No"},
			).WithLabel(label)
		}
		f.Required = false
		f.ReadOnly = false
		if f.Type == field.TypeID {
			f.Type = field.TypeInteger
		}
		inputs = append(inputs, f)
	}
	// Browsers drop the query of a GET action, so the list state that is
	// not a filter travels as hidden inputs.
	action, query, _ := strings.Cut(safeOr(app.Search.Referrer, app.URLs.Index()), "?")
	opts := []form.Option{
		form.WithMethod(http.MethodGet),
		form.WithAction(action),
		form.WithFields(inputs),
		form.WithSubmitLabel("Apply"),
	}
	values, _ := url.ParseQuery(query)
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if name == "page" || name == "referrer" || strings.HasPrefix(name, FormFilters+"[") {
			continue
		}
		for _, v := range values[name] {
			opts = append(opts, form.WithCarried(name, v))
		}
	}
	return form.New(FormFilters, opts...)
}

func (formFactory) CreateBatchForm(app *ApplicationContext) *form.Form {
	return form.New(FormBatch,
		form.WithAction(WithReferrer(app.URLs.Batch(), app.URLs.Search(app.Search))),
		form.WithHidden("entity", app.Crud.Entity),
		form.WithList("ids"),
		form.WithSubmitLabel("Delete selected"),
	)
}

func safeOr(ref, fallback string) string {
	if safe, ok := SafeReferrer(ref); ok {
		return safe
	}
	return fallback
}
