// Package cache memoizes values with a TTL, in process ([Memory]) or in
// Redis ([Redis]). The paginator uses it to avoid re-counting large tables
// on every page view.
//
//	counts := cache.NewMemory[int](cache.WithDefaultTTL(30 * time.Second))
//	total, err := cache.GetOrSet(ctx, counts, "Product:"+key,
//		func(ctx context.Context) (int, time.Duration, error) {
//			n, err := repo.Count(ctx, qb)
//			return n, 0, err
//		})
//
// After a write, drop every count of the entity at once:
//
//	_ = counts.DeletePrefix(ctx, "Product:")
package cache
