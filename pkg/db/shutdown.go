package db

import (
	"context"
	"database/sql"
	"errors"
)

// Shutdown returns a hook that closes the pool.
//
//	app := crudforge.New(
//	    crudforge.ShutdownHook(db.Shutdown(conn)),
//	)
func Shutdown(conn *sql.DB) func(ctx context.Context) error {
	return func(context.Context) error {
		return conn.Close()
	}
}

// Healthcheck returns a closure that pings the database, for health endpoints.
func Healthcheck(conn *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		if conn == nil {
			return ErrHealthcheckFailed
		}
		if err := conn.PingContext(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
