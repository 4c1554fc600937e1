package orm

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection accepts "desc" in any case; everything else is ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Order is one ORDER BY clause.
type Order struct {
	Column    string
	Direction Direction
}

var operators = map[string]bool{
	"=": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true,
	"LIKE": true, "IS NULL": true, "IS NOT NULL": true,
}

type predicateKind uint8

const (
	predicateCompare predicateKind = iota
	predicateIn
	predicateSearch
)

type predicate struct {
	value   any
	column  string
	op      string
	term    string
	columns []string
	values  []any
	kind    predicateKind
}

// QueryBuilder assembles a SELECT for one entity. Builder methods record the
// first validation error, which is returned by Err and by the SQL renderers.
// A QueryBuilder is not safe for concurrent use; Clone before sharing.
type QueryBuilder struct {
	err     error
	meta    *Metadata
	dialect Dialect
	where   []predicate
	orders  []Order
	limit   int
	offset  int
}

// NewQueryBuilder starts a query over meta's table.
func NewQueryBuilder(meta *Metadata, dialect Dialect) *QueryBuilder {
	return &QueryBuilder{meta: meta, dialect: dialect}
}

// Metadata returns the entity metadata the query selects.
func (qb *QueryBuilder) Metadata() *Metadata { return qb.meta }

// Err returns the first error recorded by a builder method.
func (qb *QueryBuilder) Err() error { return qb.err }

// Orders returns the explicit ORDER BY clauses.
func (qb *QueryBuilder) Orders() []Order { return slices.Clone(qb.orders) }

// Where adds "column op value". IS NULL and IS NOT NULL ignore value.
func (qb *QueryBuilder) Where(column, op string, value any) *QueryBuilder {
	op = strings.ToUpper(strings.TrimSpace(op))
	if !qb.checkColumn(column) {
		return qb
	}
	if !operators[op] {
		qb.fail(fmt.Errorf("%w: %q", ErrInvalidOperator, op))
		return qb
	}
	qb.where = append(qb.where, predicate{kind: predicateCompare, column: column, op: op, value: value})
	return qb
}

// WhereIn adds "column IN (values...)". An empty list matches nothing.
func (qb *QueryBuilder) WhereIn(column string, values ...any) *QueryBuilder {
	if !qb.checkColumn(column) {
		return qb
	}
	qb.where = append(qb.where, predicate{kind: predicateIn, column: column, values: slices.Clone(values)})
	return qb
}

// Search adds a case-insensitive substring match of term against any of columns.
// Blank terms and empty column lists are ignored.
func (qb *QueryBuilder) Search(term string, columns ...string) *QueryBuilder {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return qb
	}
	for _, c := range columns {
		if !qb.checkColumn(c) {
			return qb
		}
	}
	qb.where = append(qb.where, predicate{kind: predicateSearch, term: term, columns: slices.Clone(columns)})
	return qb
}

// OrderBy appends an ORDER BY clause.
func (qb *QueryBuilder) OrderBy(column string, dir Direction) *QueryBuilder {
	if !qb.checkColumn(column) {
		return qb
	}
	if dir != Desc {
		dir = Asc
	}
	qb.orders = append(qb.orders, Order{Column: column, Direction: dir})
	return qb
}

// Limit caps the number of rows; zero removes the cap.
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	qb.limit = max(n, 0)
	return qb
}

// Offset skips the first n rows.
func (qb *QueryBuilder) Offset(n int) *QueryBuilder {
	qb.offset = max(n, 0)
	return qb
}

// Paging returns the LIMIT and OFFSET values; zero means unset.
func (qb *QueryBuilder) Paging() (limit, offset int) {
	return qb.limit, qb.offset
}

// Clone returns an independent copy of the builder.
func (qb *QueryBuilder) Clone() *QueryBuilder {
	c := *qb
	c.where = slices.Clone(qb.where)
	c.orders = slices.Clone(qb.orders)
	return &c
}

// SelectSQL renders the full SELECT. Rows are always ordered by the primary
// key last so pages are stable.
func (qb *QueryBuilder) SelectSQL() (string, []any, error) {
	if qb.err != nil {
		return "", nil, qb.err
	}

	cols := make([]string, len(qb.meta.Columns))
	for i, c := range qb.meta.Columns {
		cols[i] = qb.dialect.Quote(c.Name)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(qb.dialect.Quote(qb.meta.Table))
	args := qb.writeWhere(&b)

	orders := qb.orders
	if !slices.ContainsFunc(orders, func(o Order) bool { return o.Column == qb.meta.PrimaryKey }) {
		orders = append(slices.Clone(orders), Order{Column: qb.meta.PrimaryKey, Direction: Asc})
	}
	b.WriteString(" ORDER BY ")
	for i, o := range orders {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(qb.dialect.Quote(o.Column))
		b.WriteByte(' ')
		b.WriteString(string(o.Direction))
	}

	if qb.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(qb.limit))
	}
	if qb.offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(qb.offset))
	}
	return b.String(), args, nil
}

// CountSQL renders a COUNT(*) over the same predicates, without ordering or paging.
func (qb *QueryBuilder) CountSQL() (string, []any, error) {
	if qb.err != nil {
		return "", nil, qb.err
	}
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(qb.dialect.Quote(qb.meta.Table))
	args := qb.writeWhere(&b)
	return b.String(), args, nil
}

// Key identifies the predicate set of the query, independent of paging and order.
func (qb *QueryBuilder) Key() string {
	query, args, err := qb.CountSQL()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s|%v", query, args)
}

func (qb *QueryBuilder) writeWhere(b *strings.Builder) []any {
	if len(qb.where) == 0 {
		return nil
	}
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return qb.dialect.Placeholder(len(args))
	}

	b.WriteString(" WHERE ")
	for i, p := range qb.where {
		if i > 0 {
			b.WriteString(" AND ")
		}
		switch p.kind {
		case predicateCompare:
			b.WriteString(qb.dialect.Quote(p.column))
			b.WriteByte(' ')
			b.WriteString(p.op)
			if p.op != "IS NULL" && p.op != "IS NOT NULL" {
				b.WriteByte(' ')
				b.WriteString(bind(p.value))
			}
		case predicateIn:
			if len(p.values) == 0 {
				b.WriteString("1 = 0")
				continue
			}
			b.WriteString(qb.dialect.Quote(p.column))
			b.WriteString(" IN (")
			for j, v := range p.values {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(bind(v))
			}
			b.WriteByte(')')
		case predicateSearch:
			pattern := "%" + escapeLike(p.term) + "%"
			b.WriteByte('(')
			for j, c := range p.columns {
				if j > 0 {
					b.WriteString(" OR ")
				}
				b.WriteString(qb.dialect.Contains(c, bind(pattern)))
			}
			b.WriteByte(')')
		}
	}
	return args
}

func (qb *QueryBuilder) checkColumn(column string) bool {
	if qb.err != nil {
		return false
	}
	if _, ok := qb.meta.Column(column); !ok {
		qb.fail(fmt.Errorf("%w: %s.%s", ErrUnknownColumn, qb.meta.Name, column))
		return false
	}
	return true
}

func (qb *QueryBuilder) fail(err error) {
	if qb.err == nil {
		qb.err = err
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
