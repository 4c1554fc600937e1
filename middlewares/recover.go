package middlewares

import (
	"runtime"

	"github.com/getsentry/sentry-go"

	"github.com/dmitrymomot/crudforge/internal"
)

// DefaultStackSize is the default maximum stack trace size in bytes.
const DefaultStackSize = 4096

// RecoverConfig configures the recover middleware.
type RecoverConfig struct {
	Hub               *sentry.Hub // Sentry hub panics are reported to (nil: none)
	StackSize         int         // Max stack trace size (default: 4096)
	DisablePrintStack bool        // Disable stack trace in logs
}

// RecoverOption configures RecoverConfig.
type RecoverOption func(*RecoverConfig)

// WithRecoverStackSize sets the maximum stack trace size.
func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) {
		if size > 0 {
			cfg.StackSize = size
		}
	}
}

// WithRecoverDisablePrintStack disables including stack trace in logs.
func WithRecoverDisablePrintStack() RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.DisablePrintStack = true
	}
}

// WithRecoverSentry reports recovered panics to hub. Pass
// sentry.CurrentHub() after logger.New initialized the SDK.
func WithRecoverSentry(hub *sentry.Hub) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.Hub = hub
	}
}

// Recover returns middleware that recovers from panics.
// It logs the panic and returns a PanicError to be handled by the global
// ErrorHandler, which replies 500.
func Recover(opts ...RecoverOption) internal.Middleware {
	cfg := &RecoverConfig{
		StackSize: DefaultStackSize,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				var stack []byte
				if !cfg.DisablePrintStack {
					stack = make([]byte, cfg.StackSize)
					stack = stack[:runtime.Stack(stack, false)]
					c.LogError("panic recovered", "panic", r, "stack", string(stack))
				} else {
					c.LogError("panic recovered", "panic", r)
				}

				if cfg.Hub != nil && cfg.Hub.Client() != nil {
					hub := cfg.Hub.Clone()
					hub.Scope().SetRequest(c.Request())
					hub.RecoverWithContext(c.Context(), r)
				}

				err = &PanicError{Value: r, Stack: stack}
			}()

			return next(c)
		}
	}
}
