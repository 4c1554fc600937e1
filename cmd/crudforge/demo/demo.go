// Package demo holds the sample shop schema served by the crudforge command
// when no catalog file is configured.
package demo

import (
	"embed"
	"io/fs"
	"time"
)

//go:embed catalog.yaml
var catalogFS embed.FS

//go:embed migrations
var migrationsFS embed.FS

// CatalogPath is the name of the embedded catalog file.
const CatalogPath = "catalog.yaml"

// Catalog returns the embedded catalog filesystem.
func Catalog() fs.FS { return catalogFS }

// Migrations returns the goose migrations for dialect ("postgres" or "mysql").
func Migrations(dialect string) (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations/"+dialect)
}

// Category groups products.
type Category struct {
	ID    int64  `db:"id,pk"`
	Title string `db:"title"`
	Slug  string `db:"slug"`
}

// TableName implements orm.Tabler.
func (Category) TableName() string { return "categories" }

// Product is a sellable item.
type Product struct {
	CreatedAt   time.Time `db:"created_at"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	ID          int64     `db:"id,pk"`
	CategoryID  int64     `db:"category_id"`
	Price       float64   `db:"price"`
	Stock       int       `db:"stock"`
	Published   bool      `db:"published"`
}

// Entities returns prototypes of every demo entity.
func Entities() []any {
	return []any{Category{}, Product{}}
}
