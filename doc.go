// Package crudforge serves admin CRUD pages for database entities.
//
// An application describes each entity once, either in Go through a
// [Configurator] or in a YAML catalog, and crudforge generates the list,
// detail, edit, delete, batch delete and filter pages on top of a chi
// router.
//
// # Quick Start
//
//	registry := orm.NewRegistry()
//	registry.MustRegister(catalog.Product{}, catalog.Category{})
//
//	repo := orm.NewRepository(conn, orm.Postgres)
//	views, err := render.New()
//	if err != nil {
//	    return err
//	}
//	services := crud.NewServices(repo, registry, paginator.NewFactory(repo), views, nil)
//
//	board, err := crudforge.NewDashboard(services, crudforge.WithPrefix("/admin"))
//	if err != nil {
//	    return err
//	}
//	if err := board.Add(crud.FromCatalog(defs)...); err != nil {
//	    return err
//	}
//
//	app := crudforge.New(
//	    crudforge.WithMiddleware(middlewares.RequestID(), middlewares.Recover()),
//	    crudforge.WithHandlers(board),
//	)
//	return crudforge.Run(app, crudforge.Address(":8080"))
//
// # Configurators
//
// A Configurator returns the CRUD configuration and the fields shown by
// each action:
//
//	type ProductCrud struct{}
//
//	func (ProductCrud) ConfigureCrud() crudforge.CrudConfig {
//	    return crudforge.CrudConfig{Entity: "Product", PageSize: 25}
//	}
//
//	func (ProductCrud) ConfigureFields(action string) field.Set {
//	    return field.Of(field.ID("id"), field.Text("name").AsSearchable())
//	}
//
// Optional interfaces adjust the assets, the index, detail and form pages,
// and the parameters handed to templates.
//
// # Events
//
// Every action publishes events on the dashboard [Dispatcher]. A listener
// can stop an action and reply itself, change template parameters, or
// substitute the entity being saved. See package internal/crud for the
// event types.
//
// # Handlers and Middleware
//
// The dashboard is an ordinary [Handler]. Other handlers and middleware
// share the same router:
//
//	func (h *Reports) Routes(r crudforge.Router) {
//	    r.GET("/reports", h.index)
//	}
//
// # Error Handling
//
// Handlers return errors. The default error handler replies with the
// status of an [HTTPError] and with 500 for anything else.
//
// # Server Lifecycle
//
// [Run] binds the address, runs startup hooks, serves until SIGINT or
// SIGTERM, then drains connections and runs shutdown hooks in order.
package crudforge
