package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/dmitrymomot/crudforge/pkg/db"
)

type managed struct {
	meta     *Metadata
	instance any
	snapshot []any
	removed  bool
}

type statement struct {
	query string
	args  []any
	entry *managed
}

// UnitOfWork tracks loaded entities and writes their changes in one
// transaction on Flush. Only columns whose values changed since loading are
// updated. It is safe for concurrent use but is meant to live for one request.
type UnitOfWork struct {
	repo    *Repository
	entries []*managed
	mu      sync.Mutex
}

func newUnitOfWork(repo *Repository) *UnitOfWork {
	return &UnitOfWork{repo: repo}
}

// Find loads an entity and starts tracking it.
func (u *UnitOfWork) Find(ctx context.Context, meta *Metadata, id any) (any, error) {
	instance, err := u.repo.Find(ctx, meta, id)
	if err != nil {
		return nil, err
	}
	if err := u.Track(meta, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// Track starts tracking instance, snapshotting its current state as clean.
// Tracking an already managed instance is a no-op.
func (u *UnitOfWork) Track(meta *Metadata, instance any) error {
	if !meta.Owns(instance) {
		return fmt.Errorf("%w: %T is not *%s", ErrInvalidEntity, instance, meta.Name)
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.lookup(instance) != nil {
		return nil
	}
	snapshot, err := meta.Values(instance)
	if err != nil {
		return err
	}
	u.entries = append(u.entries, &managed{meta: meta, instance: instance, snapshot: snapshot})
	return nil
}

// Merge makes instance's state the pending state of the managed entity with
// the same primary key and returns the managed instance. An instance without
// a managed counterpart is tracked with every column treated as changed.
func (u *UnitOfWork) Merge(meta *Metadata, instance any) (any, error) {
	if !meta.Owns(instance) {
		return nil, fmt.Errorf("%w: %T is not *%s", ErrInvalidEntity, instance, meta.Name)
	}
	id, err := meta.ID(instance)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if e := u.lookup(instance); e != nil {
		return e.instance, nil
	}
	for _, e := range u.entries {
		if e.meta != meta {
			continue
		}
		if eid, _ := meta.ID(e.instance); reflect.DeepEqual(eid, id) {
			if err := meta.Copy(e.instance, instance); err != nil {
				return nil, err
			}
			return e.instance, nil
		}
	}
	u.entries = append(u.entries, &managed{meta: meta, instance: instance})
	return instance, nil
}

// Remove schedules instance for deletion on the next Flush.
func (u *UnitOfWork) Remove(meta *Metadata, instance any) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	e := u.lookup(instance)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNotTracked, meta.Name)
	}
	e.removed = true
	return nil
}

// IsManaged reports whether instance is tracked.
func (u *UnitOfWork) IsManaged(instance any) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lookup(instance) != nil
}

// HasChanges reports whether Flush would write anything.
func (u *UnitOfWork) HasChanges() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	stmts, err := u.plan()
	return err != nil || len(stmts) > 0
}

// Flush writes every pending UPDATE and DELETE in a single transaction.
// Nothing is executed when there are no changes. On failure the transaction
// is rolled back and tracked state is left untouched.
func (u *UnitOfWork) Flush(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	stmts, err := u.plan()
	if err != nil {
		return errors.Join(ErrFlushFailed, err)
	}
	if len(stmts) == 0 {
		return nil
	}

	err = db.WithTx(ctx, u.repo.db, func(tx *sql.Tx) error {
		for _, s := range stmts {
			u.repo.log.DebugContext(ctx, "orm flush", slog.String("sql", s.query), slog.Int("args", len(s.args)))
			if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
				return fmt.Errorf("%s: %w", s.entry.meta.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrFlushFailed, err)
	}

	kept := u.entries[:0]
	for _, e := range u.entries {
		if e.removed {
			continue
		}
		if snap, err := e.meta.Values(e.instance); err == nil {
			e.snapshot = snap
		}
		kept = append(kept, e)
	}
	u.entries = kept
	return nil
}

func (u *UnitOfWork) lookup(instance any) *managed {
	for _, e := range u.entries {
		if e.instance == instance {
			return e
		}
	}
	return nil
}

func (u *UnitOfWork) plan() ([]statement, error) {
	var stmts []statement
	d := u.repo.dialect

	for _, e := range u.entries {
		id, err := e.meta.ID(e.instance)
		if err != nil {
			return nil, err
		}

		if e.removed {
			query := "DELETE FROM " + d.Quote(e.meta.Table) +
				" WHERE " + d.Quote(e.meta.PrimaryKey) + " = " + d.Placeholder(1)
			stmts = append(stmts, statement{query: query, args: []any{id}, entry: e})
			continue
		}

		current, err := e.meta.Values(e.instance)
		if err != nil {
			return nil, err
		}
		var (
			sets []string
			args []any
		)
		for i, c := range e.meta.Columns {
			if c.PrimaryKey {
				continue
			}
			if e.snapshot != nil && reflect.DeepEqual(e.snapshot[i], current[i]) {
				continue
			}
			args = append(args, current[i])
			sets = append(sets, d.Quote(c.Name)+" = "+d.Placeholder(len(args)))
		}
		if len(sets) == 0 {
			continue
		}
		args = append(args, id)
		query := "UPDATE " + d.Quote(e.meta.Table) + " SET " + strings.Join(sets, ", ") +
			" WHERE " + d.Quote(e.meta.PrimaryKey) + " = " + d.Placeholder(len(args))
		stmts = append(stmts, statement{query: query, args: args, entry: e})
	}
	return stmts, nil
}
