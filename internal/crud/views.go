package crud

import (
	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/orm"
	"github.com/dmitrymomot/crudforge/pkg/paginator"
)

// CrudView is the "crud" template parameter.
type CrudView struct {
	Entity      string
	Label       string
	PluralLabel string
	IndexURL    string
	Searchable  bool
}

// DashboardView is the "dashboard" template parameter.
type DashboardView struct {
	Title string
	URL   string
}

// MenuItem links a CRUD from the layout menu and the dashboard page.
type MenuItem struct {
	Label  string
	URL    string
	Active bool
}

// ColumnView is one header cell of the index table.
type ColumnView struct {
	Name      string
	Label     string
	SortURL   string
	Direction string
}

// PageLink is one numbered link of the index pagination.
type PageLink struct {
	URL     string
	Number  int
	Current bool
}

func columnViews(app *ApplicationContext, fields field.Set) []ColumnView {
	out := make([]ColumnView, 0, len(fields))
	for _, f := range fields {
		col := ColumnView{Name: f.Name, Label: f.DisplayLabel()}
		if f.Sortable {
			dir, sorted := app.Search.Sort[f.Name]
			next := orm.Asc
			if sorted && dir == orm.Asc {
				next = orm.Desc
			}
			if sorted {
				col.Direction = string(dir)
			}
			col.SortURL = app.URLs.Search(app.Search.WithSort(f.Name, next))
		}
		out = append(out, col)
	}
	return out
}

func pageLinks(app *ApplicationContext, p *paginator.Paginator) []PageLink {
	out := make([]PageLink, 0, len(p.Range))
	for _, n := range p.Range {
		out = append(out, PageLink{
			Number:  n,
			URL:     app.URLs.Search(app.Search.WithPage(n)),
			Current: n == p.Page,
		})
	}
	return out
}

func rowActions(app *ApplicationContext, id string) []ActionDto {
	var out []ActionDto
	if app.Crud.IsEnabled(ActionDetail) {
		out = append(out, ActionDto{Name: ActionDetail, Label: "Show", URL: app.URLs.Detail(id), Method: "GET"})
	}
	if app.Crud.IsEnabled(ActionEdit) {
		out = append(out, ActionDto{Name: ActionEdit, Label: "Edit", URL: WithReferrer(app.URLs.Edit(id), app.URLs.Search(app.Search)), Method: "GET"})
	}
	if app.Crud.IsEnabled(ActionDelete) {
		out = append(out, ActionDto{Name: ActionDelete, Label: "Delete", URL: WithReferrer(app.URLs.Delete(id), app.URLs.Search(app.Search)), Method: "POST"})
	}
	return out
}

// pageActions builds the configured actions of the detail page.
func pageActions(app *ApplicationContext, id string) []ActionDto {
	var out []ActionDto
	for _, name := range app.Detail.Actions {
		if !app.Crud.IsEnabled(name) {
			continue
		}
		switch name {
		case ActionIndex:
			out = append(out, ActionDto{Name: name, Label: "Back to list", URL: app.URLs.Index(), Method: "GET"})
		case ActionEdit:
			out = append(out, ActionDto{Name: name, Label: "Edit", URL: WithReferrer(app.URLs.Edit(id), app.URLs.Detail(id)), Method: "GET"})
		case ActionDelete:
			out = append(out, ActionDto{Name: name, Label: "Delete", URL: WithReferrer(app.URLs.Delete(id), app.URLs.Index()), Method: "POST"})
		}
	}
	return out
}
