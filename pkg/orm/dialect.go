package orm

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the SQL details that differ between databases.
type Dialect interface {
	// Name is the goose dialect name.
	Name() string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// Quote quotes an identifier.
	Quote(ident string) string
	// Contains renders a case-insensitive substring match of column against placeholder.
	Contains(column, placeholder string) string
}

var (
	Postgres Dialect = postgresDialect{}
	MySQL    Dialect = mysqlDialect{}
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, driver)
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d postgresDialect) Contains(column, placeholder string) string {
	return "CAST(" + d.Quote(column) + " AS TEXT) ILIKE " + placeholder
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (d mysqlDialect) Contains(column, placeholder string) string {
	return "LOWER(" + d.Quote(column) + ") LIKE LOWER(" + placeholder + ")"
}
