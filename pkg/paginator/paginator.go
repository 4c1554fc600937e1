package paginator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/crudforge/pkg/cache"
	"github.com/dmitrymomot/crudforge/pkg/logger"
	"github.com/dmitrymomot/crudforge/pkg/orm"
)

// DefaultPageSize is used when neither the factory nor the caller set one.
const DefaultPageSize = 20

// window is how many page links Range holds around the current page.
const window = 5

// Source runs the paged and the counting query. *orm.Repository satisfies it.
type Source interface {
	Fetch(ctx context.Context, qb *orm.QueryBuilder) ([]any, error)
	Count(ctx context.Context, qb *orm.QueryBuilder) (int, error)
}

// Paginator is one page of results with navigation metadata.
// Fields are exported for templates.
type Paginator struct {
	Results      []any
	Range        []int
	Page         int
	PageSize     int
	Total        int
	Pages        int
	PreviousPage int
	NextPage     int
	HasPrevious  bool
	HasNext      bool
}

// Factory builds paginators over a Source.
type Factory struct {
	source   Source
	counts   cache.Cache[int]
	log      *slog.Logger
	pageSize int
	countTTL time.Duration
}

// Option configures a Factory.
type Option func(*Factory)

// WithPageSize sets the default page size.
func WithPageSize(n int) Option {
	return func(f *Factory) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithCountCache memoizes totals per entity and predicate set for ttl.
// Call Invalidate after writes.
func WithCountCache(c cache.Cache[int], ttl time.Duration) Option {
	return func(f *Factory) {
		f.counts = c
		f.countTTL = ttl
	}
}

// WithLogger sets the logger used for cache failures.
func WithLogger(log *slog.Logger) Option {
	return func(f *Factory) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFactory creates a Factory reading from source.
func NewFactory(source Source, opts ...Option) *Factory {
	f := &Factory{
		source:   source,
		pageSize: DefaultPageSize,
		log:      logger.NewNope(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create counts the rows matched by qb and fetches the requested page.
// Pages are 1-based; out-of-range pages are clamped. pageSize <= 0 uses the
// factory default. qb itself is not modified.
func (f *Factory) Create(ctx context.Context, qb *orm.QueryBuilder, page, pageSize int) (*Paginator, error) {
	if pageSize <= 0 {
		pageSize = f.pageSize
	}

	total, err := f.count(ctx, qb)
	if err != nil {
		return nil, err
	}

	pages := max((total+pageSize-1)/pageSize, 1)
	page = min(max(page, 1), pages)

	p := &Paginator{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Pages:    pages,
		Range:    pageRange(page, pages),
	}
	if page > 1 {
		p.HasPrevious = true
		p.PreviousPage = page - 1
	}
	if page < pages {
		p.HasNext = true
		p.NextPage = page + 1
	}

	if total == 0 {
		p.Results = []any{}
		return p, nil
	}

	paged := qb.Clone().Limit(pageSize).Offset((page - 1) * pageSize)
	results, err := f.source.Fetch(ctx, paged)
	if err != nil {
		return nil, fmt.Errorf("paginator: fetch page %d: %w", page, err)
	}
	if results == nil {
		results = []any{}
	}
	p.Results = results
	return p, nil
}

// Invalidate drops cached totals of entity. It is a no-op without a count cache.
// Failures are logged, not returned: a stale total only skews page links.
func (f *Factory) Invalidate(ctx context.Context, entity string) {
	if f.counts == nil {
		return
	}
	if err := f.counts.DeletePrefix(ctx, entity+":"); err != nil {
		f.log.WarnContext(ctx, "failed to invalidate cached counts",
			slog.String("entity", entity),
			slog.String("error", err.Error()),
		)
	}
}

func (f *Factory) count(ctx context.Context, qb *orm.QueryBuilder) (int, error) {
	if err := qb.Err(); err != nil {
		return 0, err
	}
	load := func(ctx context.Context) (int, time.Duration, error) {
		n, err := f.source.Count(ctx, qb)
		return n, f.countTTL, err
	}
	if f.counts == nil {
		n, _, err := load(ctx)
		if err != nil {
			return 0, fmt.Errorf("paginator: count: %w", err)
		}
		return n, nil
	}

	key := qb.Metadata().Name + ":" + qb.Key()
	n, err := cache.GetOrSet(ctx, f.counts, key, load)
	if err != nil {
		return 0, fmt.Errorf("paginator: count: %w", err)
	}
	return n, nil
}

func pageRange(page, pages int) []int {
	start := max(page-window/2, 1)
	end := min(start+window-1, pages)
	start = max(end-window+1, 1)

	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out
}
