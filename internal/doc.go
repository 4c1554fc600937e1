// Package internal provides the HTTP core of crudforge.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/crudforge" instead, which re-exports the public API.
//
// # Core Types
//
//   - App: Orchestrates HTTP routing, middleware and graceful shutdown
//   - Context: Request/response access and rendering helpers
//   - Router: Interface handlers use to declare routes with HTTP methods and grouping
//   - Handler: Interface implemented by types that declare routes on a router
//   - HandlerFunc: Signature for individual route handlers that return errors
//   - Middleware: Wraps handlers to add cross-cutting concerns
//   - ErrorHandler: Turns handler errors into responses
//
// # Context as context.Context
//
// Context embeds context.Context, so it can be passed directly to any function
// that expects a standard library context:
//
//	func (h *Handler) show(c crudforge.Context) error {
//	    product, err := h.repo.Find(c, c.Param("id"))
//	    if err != nil {
//	        return err
//	    }
//	    return c.JSON(200, product)
//	}
//
// # Application Structure
//
//	app := internal.New(
//	    internal.WithLogger(log, "admin"),
//	    internal.WithMiddleware(middlewares.RequestID(), middlewares.Recover()),
//	    internal.WithHandlers(dashboard),
//	    internal.WithMount("/metrics", promhttp.Handler()),
//	    internal.WithHealthChecks(internal.WithReadinessCheck("db", db.Healthcheck(conn))),
//	)
//
// Handlers declare their routes and receive dependencies through their
// constructors:
//
//	func (d *Dashboard) Routes(r internal.Router) {
//	    r.GET("/admin/", d.Index)
//	}
//
// # Error Handling
//
// A handler error goes to the ErrorHandler. DefaultErrorHandler replies with
// the status and message of an *HTTPError found in the error chain and with
// 500 for anything else. Errors returned after the response was written are
// only logged.
//
// # Server Runtime
//
//	err := app.Run(":8080",
//	    internal.Logger(log),
//	    internal.StartupHook(migrate),
//	    internal.ShutdownHook(db.Shutdown(conn)),
//	)
//
// Run listens for SIGINT and SIGTERM, drains the server, then runs the
// shutdown hooks in registration order.
package internal
