package crudforge

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/crudforge/internal"
	"github.com/dmitrymomot/crudforge/internal/crud"
)

// Type aliases - public API
type (
	// App orchestrates the application lifecycle.
	// It manages HTTP routing, middleware, and graceful shutdown.
	App = internal.App

	// Router is the interface handlers use to declare routes.
	Router = internal.Router

	// Context provides request/response access and helper methods.
	Context = internal.Context

	// Handler declares routes on a router.
	Handler = internal.Handler

	// HandlerFunc is the signature for route handlers.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps a HandlerFunc to add cross-cutting concerns.
	Middleware = internal.Middleware

	// ErrorHandler handles errors returned from handlers.
	ErrorHandler = internal.ErrorHandler

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// Component is the interface for renderable templates.
	Component = internal.Component

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// CheckFunc is a readiness check.
	CheckFunc = internal.CheckFunc

	// ResponseWriter wraps http.ResponseWriter with hooks and HTMX support.
	ResponseWriter = internal.ResponseWriter

	// HTTPError is an error carrying the status to reply with.
	HTTPError = internal.HTTPError

	// Scalar lists the types Param and Query convert to.
	Scalar = internal.Scalar
)

// CRUD API
type (
	// Dashboard groups CRUD controllers under one admin prefix.
	Dashboard = crud.Dashboard

	// Controller serves the pages of one CRUD.
	Controller = crud.Controller

	// Configurator declares a CRUD.
	Configurator = crud.Configurator

	// CrudConfig describes one CRUD.
	CrudConfig = crud.CrudConfig

	// CrudOption configures a Controller or a Dashboard.
	CrudOption = crud.Option

	// Services are the collaborators shared by every controller.
	Services = crud.Services

	// Dispatcher publishes the CRUD lifecycle events.
	Dispatcher = crud.Dispatcher

	// Parameters are the values passed to a template.
	Parameters = crud.Parameters
)

// Constructors

// New creates a new application with the given options.
// The App is immutable after creation.
//
// Example:
//
//	app := crudforge.New(
//	    crudforge.WithMiddleware(middlewares.RequestID()),
//	    crudforge.WithHandlers(dashboard),
//	)
//
//	err := crudforge.Run(app, crudforge.Address(":8080"), crudforge.Logger(log))
func New(opts ...Option) *App {
	return internal.New(opts...)
}

// Run serves app and blocks until SIGINT or SIGTERM.
func Run(app *App, opts ...RunOption) error {
	return internal.Run(app, opts...)
}

// NewDashboard creates an empty dashboard. Add CRUDs with Dashboard.Add.
//
// Example:
//
//	board, err := crudforge.NewDashboard(services, crudforge.WithPrefix("/admin"))
//	if err != nil {
//	    return err
//	}
//	if err := board.Add(crud.FromCatalog(catalog)...); err != nil {
//	    return err
//	}
func NewDashboard(services Services, opts ...CrudOption) (*Dashboard, error) {
	return crud.NewDashboard(services, opts...)
}

// NewController creates a standalone CRUD controller.
func NewController(cfg Configurator, services Services, opts ...CrudOption) (*Controller, error) {
	return crud.NewController(cfg, services, opts...)
}

// NewDispatcher creates an empty event dispatcher.
func NewDispatcher() *Dispatcher {
	return crud.NewDispatcher()
}

// App options

// WithMiddleware adds global middleware to the application.
// Middleware is applied in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithHandlers registers handlers that declare routes.
// Each handler's Routes method is called during setup.
func WithHandlers(h ...Handler) Option {
	return internal.WithHandlers(h...)
}

// WithStaticFiles mounts a static file handler at the given pattern.
// Directory listings are disabled. Files are served with default cache headers.
func WithStaticFiles(pattern string, fsys fs.FS, subDir string) Option {
	return internal.WithStaticFiles(pattern, fsys, subDir)
}

// WithMount attaches a plain http.Handler at pattern.
//
// Example:
//
//	crudforge.WithMount("/metrics", metrics.Handler())
func WithMount(pattern string, h http.Handler) Option {
	return internal.WithMount(pattern, h)
}

// WithErrorHandler sets a custom error handler for handler errors.
// Called when a handler returns a non-nil error.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithNotFoundHandler sets a custom 404 handler.
func WithNotFoundHandler(h HandlerFunc) Option {
	return internal.WithNotFoundHandler(h)
}

// WithMethodNotAllowedHandler sets a custom 405 handler.
func WithMethodNotAllowedHandler(h HandlerFunc) Option {
	return internal.WithMethodNotAllowedHandler(h)
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): Always returns OK if process is running.
// Readiness (/health/ready): Runs all configured checks.
//
// Example:
//
//	crudforge.WithHealthChecks(
//	    crudforge.WithReadinessCheck("db", db.Healthcheck(conn)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithLogger sets the request logger. A non-empty component is added to
// every record.
func WithLogger(l *slog.Logger, component string) Option {
	return internal.WithLogger(l, component)
}

// Health check options

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithHealthTimeout bounds a readiness probe. Defaults to 5 seconds.
func WithHealthTimeout(d time.Duration) HealthOption {
	return internal.WithHealthTimeout(d)
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during readiness probe.
func WithReadinessCheck(name string, fn CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// Run options

// Address sets the HTTP server address.
// Defaults to ":8080".
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Logger sets the server logger.
// If nil, logging is disabled.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the timeout for graceful shutdown.
// This applies to both the HTTP server and shutdown hooks.
// Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook registers a function to run before the server accepts
// connections. A failing hook aborts the start.
//
// Example:
//
//	crudforge.StartupHook(db.Migrate(conn, migrations))
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook registers a cleanup function to run during shutdown.
// Hooks are called in the order they were registered.
// Each hook receives a context with the shutdown timeout.
//
// Example:
//
//	crudforge.ShutdownHook(db.Shutdown(conn))
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets the base context used for signal handling.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// CRUD options

// WithPrefix mounts the dashboard under prefix, e.g. "/admin".
func WithPrefix(prefix string) CrudOption {
	return crud.WithPrefix(prefix)
}

// WithTitle sets the dashboard title.
func WithTitle(title string) CrudOption {
	return crud.WithTitle(title)
}

// WithCrudLogger sets the logger of dashboard and controller setup.
func WithCrudLogger(l *slog.Logger) CrudOption {
	return crud.WithLogger(l)
}

// Errors

// NewHTTPError creates an error that replies with code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return internal.NewHTTPError(code, message)
}

// ErrNotFound returns a 404 HTTPError.
func ErrNotFound(message string) *HTTPError {
	return internal.ErrNotFound(message)
}

// ErrBadRequest returns a 400 HTTPError.
func ErrBadRequest(message string) *HTTPError {
	return internal.ErrBadRequest(message)
}

// ErrForbidden returns a 403 HTTPError.
func ErrForbidden(message string) *HTTPError {
	return internal.ErrForbidden(message)
}

// Helpers

// Param returns a typed URL parameter.
func Param[T Scalar](c Context, name string) T {
	return internal.Param[T](c, name)
}

// Query returns a typed query parameter.
func Query[T Scalar](c Context, name string) T {
	return internal.Query[T](c, name)
}

// QueryDefault returns a typed query parameter or defaultValue when absent.
func QueryDefault[T Scalar](c Context, name string, defaultValue T) T {
	return internal.QueryDefault(c, name, defaultValue)
}
