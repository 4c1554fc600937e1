package internal

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/crudforge/pkg/logger"
)

// Default server timeouts (hardcoded, opinionated).
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
	defaultAddress           = ":8080"
)

// App orchestrates the application lifecycle.
// It manages HTTP routing, middleware, and graceful shutdown.
// App is immutable after creation - all configuration is done via New().
type App struct {
	router                  chi.Router
	errorHandler            ErrorHandler
	notFoundHandler         HandlerFunc
	methodNotAllowedHandler HandlerFunc
	healthConfig            *healthConfig
	logger                  *slog.Logger
	middlewares             []Middleware
	handlers                []Handler
	mounts                  []mount
}

// mount is an http.Handler attached at a pattern.
type mount struct {
	handler http.Handler
	pattern string
}

// New creates a new application with the given options.
// The App is immutable after creation.
//
// Example:
//
//	app := crudforge.New(
//	    crudforge.WithMiddleware(middlewares.RequestID()),
//	    crudforge.WithHandlers(dashboard),
//	)
func New(opts ...Option) *App {
	a := &App{
		router: chi.NewRouter(),
		logger: logger.NewNope(),
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.errorHandler == nil {
		a.errorHandler = DefaultErrorHandler
	}

	a.setupRoutes()
	return a
}

// Router returns the underlying chi.Router for the App.
func (a *App) Router() chi.Router {
	return a.router
}

// ServeHTTP makes App an http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Run starts the HTTP server and blocks until shutdown.
//
// Example:
//
//	app := crudforge.New(
//	    crudforge.WithHandlers(dashboard),
//	)
//	err := app.Run(":8080", crudforge.Logger(log))
func (a *App) Run(addr string, opts ...RunOption) error {
	return runServer(a.router, buildRunConfig(append(opts, Address(addr))...))
}

// setupRoutes configures the router with middleware and handlers.
func (a *App) setupRoutes() {
	if a.notFoundHandler != nil {
		a.router.NotFound(a.serve(a.notFoundHandler).ServeHTTP)
	}
	if a.methodNotAllowedHandler != nil {
		a.router.MethodNotAllowed(a.serve(a.methodNotAllowedHandler).ServeHTTP)
	}

	for _, mw := range a.middlewares {
		a.router.Use(a.adaptMiddleware(mw))
	}

	for _, m := range a.mounts {
		a.router.Mount(m.pattern, m.handler)
	}

	if a.healthConfig != nil {
		a.router.Get(a.healthConfig.livenessPath, livenessHandler())
		a.router.Get(a.healthConfig.readinessPath, readinessHandler(a.healthConfig.checks, a.healthConfig.timeout, a.logger))
	}

	r := &routerAdapter{router: a.router, app: a}
	for _, h := range a.handlers {
		h.Routes(r)
	}
}

// handleError handles errors from handlers using the configured error handler.
func (a *App) handleError(c Context, err error) {
	if c.Written() {
		c.LogError("handler failed after response was written", slog.Any("error", err))
		return
	}
	if herr := a.errorHandler(c, err); herr != nil {
		c.LogError("error handler failed", slog.Any("error", herr))
		http.Error(c.Response(), http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// DefaultErrorHandler replies with the status and message of an HTTPError
// and with a bare 500 for any other error. Clients accepting JSON get
// {"error": message}. Server errors are logged.
func DefaultErrorHandler(c Context, err error) error {
	herr := AsHTTPError(err)
	if herr == nil {
		herr = ErrInternal(http.StatusText(http.StatusInternalServerError), WithError(err))
	}
	if herr.Code >= http.StatusInternalServerError {
		c.LogError("request failed", slog.Int("status", herr.Code), slog.Any("error", err))
	} else {
		c.LogDebug("request rejected", slog.Int("status", herr.Code), slog.Any("error", err))
	}
	if strings.Contains(c.Header("Accept"), "application/json") {
		return c.JSON(herr.Code, map[string]string{"error": herr.Message})
	}
	return c.String(herr.Code, herr.Message)
}

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        HealthChecks
	livenessPath  string
	readinessPath string
	timeout       time.Duration
}

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithHealthTimeout bounds the readiness probe. Defaults to 5 seconds.
func WithHealthTimeout(d time.Duration) HealthOption {
	return func(c *healthConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during readiness probe.
//
// Example:
//
//	crudforge.WithReadinessCheck("db", db.Healthcheck(conn))
func WithReadinessCheck(name string, fn CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if c.checks == nil {
			c.checks = make(HealthChecks)
		}
		c.checks[name] = fn
	}
}
