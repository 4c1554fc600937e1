package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Connect opens a database/sql pool and pings it, retrying with linear backoff.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, ErrEmptyDSN
	}
	driver := cfg.Driver
	if driver == "" {
		driver = "pgx"
	}

	dsn, err := DataSource(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		conn, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, errors.Join(ErrFailedToParseDBConfig, err)
		}
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
		conn.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
		conn.SetConnMaxLifetime(cfg.MaxConnLifetime)

		lastErr = conn.PingContext(ctx)
		if lastErr == nil {
			return conn, nil
		}
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToOpenDBConnection, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrFailedToOpenDBConnection, lastErr)
}

// DataSource adapts dsn to what the orm expects from driver. MySQL DSNs get
// parseTime=true so DATETIME columns scan into time.Time.
func DataSource(driver, dsn string) (string, error) {
	if driver != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Join(ErrFailedToParseDBConfig, err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
