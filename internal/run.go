package internal

import "errors"

// Run serves app on the configured address and blocks until shutdown.
// Startup hooks run before the listener opens; shutdown hooks run after
// the server drains.
//
// Example:
//
//	err := crudforge.Run(app,
//	    crudforge.Address(cfg.Addr),
//	    crudforge.Logger(log),
//	    crudforge.ShutdownHook(db.Shutdown(conn)),
//	)
func Run(app *App, opts ...RunOption) error {
	if app == nil {
		return errors.New("crudforge.Run: nil app")
	}
	return runServer(app.router, buildRunConfig(opts...))
}
