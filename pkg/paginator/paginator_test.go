package paginator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/crudforge/pkg/cache"
	"github.com/dmitrymomot/crudforge/pkg/orm"
	"github.com/dmitrymomot/crudforge/pkg/paginator"
)

type Item struct {
	ID int64 `db:"id,pk"`
}

type fakeSource struct {
	countErr error
	rows     int
	counts   int
	limits   []int
	offsets  []int
}

func (s *fakeSource) Count(context.Context, *orm.QueryBuilder) (int, error) {
	s.counts++
	return s.rows, s.countErr
}

func (s *fakeSource) Fetch(_ context.Context, qb *orm.QueryBuilder) ([]any, error) {
	if err := qb.Err(); err != nil {
		return nil, err
	}
	limit, offset := qb.Paging()
	s.limits = append(s.limits, limit)
	s.offsets = append(s.offsets, offset)

	var out []any
	for i := offset; i < min(offset+limit, s.rows); i++ {
		out = append(out, &Item{ID: int64(i + 1)})
	}
	return out, nil
}

func newQuery(t *testing.T) *orm.QueryBuilder {
	t.Helper()
	meta, err := orm.Describe(Item{})
	require.NoError(t, err)
	return orm.NewQueryBuilder(meta, orm.Postgres)
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name       string
		rows       int
		page       int
		wantPage   int
		wantPages  int
		wantLen    int
		wantPrev   bool
		wantNext   bool
		wantRange  []int
		wantOffset int
	}{
		{"first page", 45, 1, 1, 3, 20, false, true, []int{1, 2, 3}, 0},
		{"middle page", 45, 2, 2, 3, 20, true, true, []int{1, 2, 3}, 20},
		{"last page", 45, 3, 3, 3, 5, true, false, []int{1, 2, 3}, 40},
		{"page below range", 45, -4, 1, 3, 20, false, true, []int{1, 2, 3}, 0},
		{"page above range", 45, 99, 3, 3, 5, true, false, []int{1, 2, 3}, 40},
		{"window", 500, 12, 12, 25, 20, true, true, []int{10, 11, 12, 13, 14}, 220},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := &fakeSource{rows: tt.rows}
			f := paginator.NewFactory(src)

			p, err := f.Create(ctx, newQuery(t), tt.page, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPages, p.Pages)
			assert.Equal(t, tt.rows, p.Total)
			assert.Len(t, p.Results, tt.wantLen)
			assert.Equal(t, tt.wantPrev, p.HasPrevious)
			assert.Equal(t, tt.wantNext, p.HasNext)
			assert.Equal(t, tt.wantRange, p.Range)
			require.Len(t, src.offsets, 1)
			assert.Equal(t, tt.wantOffset, src.offsets[0])
		})
	}
}

func TestCreateEmpty(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	p, err := paginator.NewFactory(src, paginator.WithPageSize(10)).Create(context.Background(), newQuery(t), 3, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.Pages)
	assert.Equal(t, 10, p.PageSize)
	assert.NotNil(t, p.Results)
	assert.Empty(t, p.Results)
	assert.Empty(t, src.limits, "no fetch for an empty result set")
}

func TestCreateDoesNotModifyQuery(t *testing.T) {
	t.Parallel()
	qb := newQuery(t)
	before, _, err := qb.SelectSQL()
	require.NoError(t, err)

	_, err = paginator.NewFactory(&fakeSource{rows: 50}).Create(context.Background(), qb, 2, 5)
	require.NoError(t, err)

	after, _, err := qb.SelectSQL()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCountErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := paginator.NewFactory(&fakeSource{countErr: boom}).Create(context.Background(), newQuery(t), 1, 0)
	require.ErrorIs(t, err, boom)

	bad := newQuery(t).OrderBy("missing", orm.Asc)
	_, err = paginator.NewFactory(&fakeSource{}).Create(context.Background(), bad, 1, 0)
	require.ErrorIs(t, err, orm.ErrUnknownColumn)
}

func TestCountCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	counts := cache.NewMemory[int](cache.WithCleanupInterval(0))
	defer counts.Close()

	src := &fakeSource{rows: 30}
	f := paginator.NewFactory(src, paginator.WithCountCache(counts, time.Minute))

	for page := 1; page <= 2; page++ {
		_, err := f.Create(ctx, newQuery(t), page, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.counts, "total is counted once per predicate set")

	f.Invalidate(ctx, "Item")
	_, err := f.Create(ctx, newQuery(t), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, src.counts)
}
