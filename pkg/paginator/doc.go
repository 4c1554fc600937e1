// Package paginator splits an orm query into pages.
//
//	factory := paginator.NewFactory(repo,
//		paginator.WithPageSize(25),
//		paginator.WithCountCache(cache.NewMemory[int](), 30*time.Second),
//	)
//	page, err := factory.Create(ctx, repo.QueryBuilder(meta).Search(q, "name"), 2, 0)
//
// Totals can be memoized in a [cache.Cache]; keys are "{Entity}:{count SQL|args}"
// so [Factory.Invalidate] drops all totals of an entity after a write.
package paginator
