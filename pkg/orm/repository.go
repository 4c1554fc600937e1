package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/crudforge/pkg/logger"
)

// Repository reads entities through database/sql.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger logs every statement at debug level.
func WithLogger(log *slog.Logger) Option {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRepository wraps db using dialect for SQL rendering.
func NewRepository(db *sql.DB, dialect Dialect, opts ...Option) *Repository {
	r := &Repository{
		db:      db,
		dialect: dialect,
		log:     logger.NewNope(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dialect returns the SQL dialect in use.
func (r *Repository) Dialect() Dialect { return r.dialect }

// DB returns the underlying connection pool.
func (r *Repository) DB() *sql.DB { return r.db }

// QueryBuilder starts a query over meta's table.
func (r *Repository) QueryBuilder(meta *Metadata) *QueryBuilder {
	return NewQueryBuilder(meta, r.dialect)
}

// Fetch runs qb and returns one new *T per row.
func (r *Repository) Fetch(ctx context.Context, qb *QueryBuilder) ([]any, error) {
	query, args, err := qb.SelectSQL()
	if err != nil {
		return nil, err
	}
	r.log.DebugContext(ctx, "orm fetch", slog.String("sql", query), slog.Int("args", len(args)))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orm: fetch %s: %w", qb.meta.Name, err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		instance := qb.meta.New()
		targets, err := qb.meta.scanTargets(instance)
		if err != nil {
			return nil, err
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("orm: scan %s: %w", qb.meta.Name, err)
		}
		out = append(out, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orm: fetch %s: %w", qb.meta.Name, err)
	}
	return out, nil
}

// Count returns the number of rows matching qb's predicates.
func (r *Repository) Count(ctx context.Context, qb *QueryBuilder) (int, error) {
	query, args, err := qb.CountSQL()
	if err != nil {
		return 0, err
	}
	r.log.DebugContext(ctx, "orm count", slog.String("sql", query), slog.Int("args", len(args)))

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("orm: count %s: %w", qb.meta.Name, err)
	}
	return n, nil
}

// Find loads the entity with the given primary key.
func (r *Repository) Find(ctx context.Context, meta *Metadata, id any) (any, error) {
	qb := r.QueryBuilder(meta).Where(meta.PrimaryKey, "=", id).Limit(1)
	found, err := r.Fetch(ctx, qb)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, meta.Name, id)
	}
	return found[0], nil
}

// UnitOfWork starts a change-tracking session over the repository.
func (r *Repository) UnitOfWork() *UnitOfWork {
	return newUnitOfWork(r)
}

// IsNotFound reports whether err means the entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
