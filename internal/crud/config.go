package crud

import (
	"slices"
	"strings"

	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/orm"
)

// Action names. They double as the keys of per-action field sets.
const (
	ActionIndex       = "index"
	ActionDetail      = "detail"
	ActionEdit        = "edit"
	ActionDelete      = "delete"
	ActionBatchDelete = "batch_delete"
	ActionFilters     = "filters"
	ActionDashboard   = "dashboard"
)

// Template paths rendered by the controller.
const (
	TemplateIndex     = "crud/index"
	TemplateDetail    = "crud/detail"
	TemplateEdit      = "crud/edit"
	TemplateFilters   = "crud/filters"
	TemplateDashboard = "dashboard"
)

var allActions = []string{ActionIndex, ActionDetail, ActionEdit, ActionDelete, ActionBatchDelete, ActionFilters}

// CrudConfig describes one CRUD. Entity is the name the entity is
// registered under in the orm registry; Path is the URL segment of its
// pages and defaults to the snake_cased entity name.
type CrudConfig struct {
	Templates   map[string]string
	Entity      string
	Path        string
	Label       string
	PluralLabel string
	DefaultSort []orm.Order
	Actions     []string
	PageSize    int
}

// IsEnabled reports whether action is served. An empty Actions list
// enables every action.
func (c CrudConfig) IsEnabled(action string) bool {
	if len(c.Actions) == 0 {
		return slices.Contains(allActions, action)
	}
	return slices.Contains(c.Actions, action)
}

// TemplatePath returns the configured override for a template path, or the
// path itself.
func (c CrudConfig) TemplatePath(path string) string {
	if p, ok := c.Templates[path]; ok && p != "" {
		return p
	}
	return path
}

func (c CrudConfig) withDefaults() CrudConfig {
	c.Entity = strings.TrimSpace(c.Entity)
	if c.Path == "" {
		c.Path = orm.SnakeCase(c.Entity)
	}
	c.Path = strings.Trim(c.Path, "/")
	if c.Label == "" {
		c.Label = field.Humanize(c.Entity)
	}
	if c.PluralLabel == "" {
		c.PluralLabel = c.Label + "s"
	}
	return c
}

// Assets lists stylesheets and scripts included by the layout.
type Assets struct {
	CSS []string
	JS  []string
}

// IndexPage configures the list page.
type IndexPage struct {
	SearchFields []string
	PageSize     int
	// Filters overrides the filterable fields of the index field set.
	Filters field.Set
}

// DetailPage configures the detail page. Actions are shown in order.
type DetailPage struct {
	Actions []string
}

// FormPage configures the edit page.
type FormPage struct {
	SubmitLabel string
	HideDelete  bool
}

// Parameters are the values passed to a template.
type Parameters map[string]any

// Configurator declares a CRUD. Applications implement it once per entity
// and may add any of the optional Configure interfaces below.
type Configurator interface {
	ConfigureCrud() CrudConfig
	ConfigureFields(action string) field.Set
}

// AssetsConfigurator adjusts the assets of a CRUD's pages.
type AssetsConfigurator interface {
	ConfigureAssets(Assets) Assets
}

// IndexPageConfigurator adjusts the list page.
type IndexPageConfigurator interface {
	ConfigureIndexPage(IndexPage) IndexPage
}

// DetailPageConfigurator adjusts the detail page.
type DetailPageConfigurator interface {
	ConfigureDetailPage(DetailPage) DetailPage
}

// FormPageConfigurator adjusts the edit page.
type FormPageConfigurator interface {
	ConfigureFormPage(FormPage) FormPage
}

// TemplateParametersConfigurator adds, modifies or removes parameters right
// before a template is rendered. It runs after the after-action event and
// cannot change the template path.
type TemplateParametersConfigurator interface {
	TemplateParameters(action string, params Parameters) Parameters
}

// pages holds the resolved page configuration of a CRUD.
type pages struct {
	assets Assets
	index  IndexPage
	detail DetailPage
	form   FormPage
}

func resolvePages(cfg Configurator, crud CrudConfig) pages {
	p := pages{
		index:  IndexPage{PageSize: crud.PageSize},
		detail: DetailPage{Actions: []string{ActionEdit, ActionDelete, ActionIndex}},
		form:   FormPage{SubmitLabel: "Save changes"},
	}
	if c, ok := cfg.(AssetsConfigurator); ok {
		p.assets = c.ConfigureAssets(p.assets)
	}
	if c, ok := cfg.(IndexPageConfigurator); ok {
		p.index = c.ConfigureIndexPage(p.index)
	}
	if c, ok := cfg.(DetailPageConfigurator); ok {
		p.detail = c.ConfigureDetailPage(p.detail)
	}
	if c, ok := cfg.(FormPageConfigurator); ok {
		p.form = c.ConfigureFormPage(p.form)
	}
	return p
}

// CatalogConfigurator serves a CRUD from a field catalog definition.
type CatalogConfigurator struct {
	Definition field.Definition
	Assets     Assets
}

var (
	_ Configurator          = CatalogConfigurator{}
	_ AssetsConfigurator    = CatalogConfigurator{}
	_ IndexPageConfigurator = CatalogConfigurator{}
)

// FromCatalog returns a configurator per catalog definition, sorted by entity.
func FromCatalog(catalog field.Catalog) []Configurator {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]Configurator, 0, len(names))
	for _, name := range names {
		out = append(out, CatalogConfigurator{Definition: catalog[name]})
	}
	return out
}

func (c CatalogConfigurator) ConfigureCrud() CrudConfig {
	d := c.Definition
	cfg := CrudConfig{
		Entity:      d.Entity,
		Label:       d.Label,
		PluralLabel: d.PluralLabel,
		PageSize:    d.PageSize,
	}
	for _, s := range d.DefaultSort {
		cfg.DefaultSort = append(cfg.DefaultSort, orm.Order{Column: s.Field, Direction: orm.ParseDirection(s.Direction)})
	}
	return cfg
}

func (c CatalogConfigurator) ConfigureFields(action string) field.Set {
	return c.Definition.Fields(action)
}

func (c CatalogConfigurator) ConfigureAssets(a Assets) Assets {
	a.CSS = append(a.CSS, c.Assets.CSS...)
	a.JS = append(a.JS, c.Assets.JS...)
	return a
}

func (c CatalogConfigurator) ConfigureIndexPage(p IndexPage) IndexPage {
	if s, ok := c.Definition.Actions[ActionFilters]; ok {
		p.Filters = s.Clone()
	}
	return p
}
