// Package orm is a small reflection-based data mapper over database/sql.
//
// Entities are plain structs described once with [Describe] (usually through
// a [Registry]). A [Repository] fetches and counts rows built by a
// [QueryBuilder]; a [UnitOfWork] tracks loaded entities and writes only the
// changed columns in a single transaction on Flush.
//
//	type Product struct {
//		ID    int64   `db:"id,pk"`
//		Name  string  `db:"name"`
//		Price float64 `db:"price"`
//	}
//
//	registry := orm.NewRegistry()
//	registry.MustRegister(Product{})
//	meta, _ := registry.Lookup("Product")
//
//	repo := orm.NewRepository(conn, orm.Postgres)
//	uow := repo.UnitOfWork()
//	p, err := uow.Find(ctx, meta, int64(1))
//	if err != nil {
//		return err
//	}
//	p.(*Product).Price = 9.99
//	err = uow.Flush(ctx) // UPDATE "products" SET "price" = $1 WHERE "id" = $2
//
// PostgreSQL (pgx stdlib driver) and MySQL dialects are provided.
package orm
