// Package middlewares provides the HTTP middleware of crudforge applications.
//
// # Request ID
//
// RequestID assigns an ID to each request. An upstream X-Request-ID or
// X-Correlation-ID header is kept; otherwise a UUIDv7 is generated. The ID
// is echoed in the X-Request-ID response header and, with
// RequestIDExtractor, added to every log record:
//
//	log := logger.New(cfg.Log, middlewares.RequestIDExtractor())
//	app := crudforge.New(
//	    crudforge.WithLogger(log, "admin"),
//	    crudforge.WithMiddleware(middlewares.RequestID()),
//	)
//
// # Recover
//
// Recover turns a panic into a *PanicError returned to the error handler,
// which replies 500. WithRecoverSentry reports the panic to Sentry as well.
//
// # Metrics
//
// Metrics counts requests and observes their latency per method and chi
// route pattern:
//
//	reg := prometheus.NewRegistry()
//	m, err := middlewares.NewMetrics("crudforge", reg)
//	if err != nil {
//	    return err
//	}
//	app := crudforge.New(
//	    crudforge.WithMiddleware(m.Middleware()),
//	    crudforge.WithMount("/metrics", m.Handler()),
//	)
//
// # Recommended Order
//
//	crudforge.WithMiddleware(
//	    middlewares.RequestID(), // first: every later log line carries the ID
//	    m.Middleware(),
//	    middlewares.Recover(),   // last: panics become errors the metrics see
//	)
package middlewares
