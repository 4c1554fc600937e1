// Package logger builds the process slog.Logger.
//
// New reads a Config (level, format and an optional Sentry DSN) and returns
// a logger writing JSON or text to stdout. With a DSN, errors also create
// Sentry issues and warnings are stored as Sentry logs; when Sentry cannot
// be initialized the logger keeps writing locally.
//
//	log := logger.New(logger.Config{Level: "debug", Format: "text"},
//		middlewares.RequestIDExtractor(),
//	)
//
// A ContextExtractor adds a request-scoped attribute, such as the request
// id, to every record logged with a context:
//
//	type ContextExtractor func(ctx context.Context) (slog.Attr, bool)
//
// NewLogHandlerDecorator applies extractors to any slog.Handler. NewNope
// returns a logger that discards everything and is the default of every
// component that accepts a logger.
package logger
