package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/crudforge"
	"github.com/dmitrymomot/crudforge/cmd/crudforge/demo"
	"github.com/dmitrymomot/crudforge/internal/crud"
	"github.com/dmitrymomot/crudforge/middlewares"
	"github.com/dmitrymomot/crudforge/pkg/cache"
	"github.com/dmitrymomot/crudforge/pkg/db"
	"github.com/dmitrymomot/crudforge/pkg/event"
	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/orm"
	"github.com/dmitrymomot/crudforge/pkg/paginator"
	"github.com/dmitrymomot/crudforge/pkg/redis"
	"github.com/dmitrymomot/crudforge/pkg/render"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin dashboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("prefix", "/admin", "dashboard URL prefix")
	flags.String("catalog", "", "CRUD catalog file (default: embedded demo catalog)")
	flags.String("templates", "", "directory with template overrides")
	flags.Bool("migrate", false, "apply pending migrations before serving")

	_ = v.BindPFlag("addr", flags.Lookup("addr"))
	_ = v.BindPFlag("prefix", flags.Lookup("prefix"))
	_ = v.BindPFlag("catalog", flags.Lookup("catalog"))
	_ = v.BindPFlag("templates", flags.Lookup("templates"))
	_ = v.BindPFlag("auto_migrate", flags.Lookup("migrate"))
}

func serve(ctx context.Context) error {
	defer sentry.Flush(cfg.ShutdownTimeout)

	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	dialect, err := orm.DialectFor(cfg.Database.Driver)
	if err != nil {
		_ = conn.Close()
		return err
	}

	registry := orm.NewRegistry()
	if err := registry.Register(demo.Entities()...); err != nil {
		_ = conn.Close()
		return err
	}
	catalog, err := loadCatalog()
	if err != nil {
		_ = conn.Close()
		return err
	}

	views, err := render.New(
		render.WithDir(cfg.Templates),
		render.WithGlobals(map[string]any{"title": cfg.Title}),
		render.WithLogger(log),
	)
	if err != nil {
		_ = conn.Close()
		return err
	}

	repo := orm.NewRepository(conn, dialect, orm.WithLogger(log))

	counts, closeCache, healthOpts, err := countCache(ctx)
	if err != nil {
		_ = conn.Close()
		return err
	}
	paginators := paginator.NewFactory(repo,
		paginator.WithPageSize(cfg.PageSize),
		paginator.WithCountCache(counts, cfg.CountCacheTTL),
		paginator.WithLogger(log),
	)

	events := crud.NewDispatcher(event.WithLogger(log))
	subscribeAudit(events, log)

	board, err := crudforge.NewDashboard(
		crud.NewServices(repo, registry, paginators, views, events),
		crudforge.WithPrefix(cfg.Prefix),
		crudforge.WithTitle(cfg.Title),
		crudforge.WithCrudLogger(log),
	)
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := board.Add(crud.FromCatalog(catalog)...); err != nil {
		_ = conn.Close()
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middlewares.NewMetrics("crudforge", reg)
	if err != nil {
		_ = conn.Close()
		return err
	}

	healthOpts = append(healthOpts, crudforge.WithReadinessCheck("database", db.Healthcheck(conn)))
	app := crudforge.New(
		crudforge.WithMiddleware(
			middlewares.RequestID(),
			middlewares.Recover(middlewares.WithRecoverSentry(sentry.CurrentHub())),
			metrics.Middleware(),
		),
		crudforge.WithLogger(log, "http"),
		crudforge.WithHandlers(board),
		crudforge.WithMount("/metrics", metrics.Handler()),
		crudforge.WithHealthChecks(healthOpts...),
	)

	runOpts := []crudforge.RunOption{
		crudforge.Address(cfg.Addr),
		crudforge.Logger(log),
		crudforge.ShutdownTimeout(cfg.ShutdownTimeout),
		crudforge.WithContext(ctx),
		crudforge.ShutdownHook(db.Shutdown(conn)),
		crudforge.ShutdownHook(closeCache),
	}
	if cfg.AutoMigrate {
		runOpts = append(runOpts, crudforge.StartupHook(func(ctx context.Context) error {
			return migrate(ctx, conn, dialect)
		}))
	}
	return crudforge.Run(app, runOpts...)
}

// loadCatalog reads the configured catalog file or the embedded demo one.
func loadCatalog() (field.Catalog, error) {
	if cfg.Catalog == "" {
		return field.LoadCatalogFS(demo.Catalog(), demo.CatalogPath)
	}
	f, err := os.Open(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return field.LoadCatalog(f)
}

// countCache returns the cache of pagination totals. Redis backs it when
// configured so every replica sees the same invalidations.
func countCache(ctx context.Context) (cache.Cache[int], func(context.Context) error, []crudforge.HealthOption, error) {
	if !cfg.Redis.Enabled() {
		mem := cache.NewMemory[int](cache.WithDefaultTTL(cfg.CountCacheTTL))
		return mem, func(context.Context) error { return mem.Close() }, nil, nil
	}

	client, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, nil, err
	}
	counts := cache.NewRedis[int](client, nil,
		cache.WithPrefix("crudforge:count"),
		cache.WithRedisDefaultTTL(cfg.CountCacheTTL),
	)
	health := []crudforge.HealthOption{crudforge.WithReadinessCheck("redis", redis.Healthcheck(client))}
	return counts, redis.Shutdown(client), health, nil
}

// subscribeAudit logs every saved and deleted entity.
func subscribeAudit(events *crud.Dispatcher, log *slog.Logger) {
	event.Subscribe(events, func(ctx context.Context, e *crud.AfterEntityUpdatedEvent) (event.Result[crud.Response], error) {
		log.InfoContext(ctx, "entity updated",
			slog.String("entity", e.Context.Crud.Entity),
			slog.String("id", e.Context.EntityID))
		return event.Continue[crud.Response](), nil
	}, event.WithName("audit.updated"))

	event.Subscribe(events, func(ctx context.Context, e *crud.AfterEntityDeletedEvent) (event.Result[crud.Response], error) {
		log.InfoContext(ctx, "entity deleted",
			slog.String("entity", e.Context.Crud.Entity),
			slog.String("id", e.Context.EntityID))
		return event.Continue[crud.Response](), nil
	}, event.WithName("audit.deleted"))
}

func migrate(ctx context.Context, conn *sql.DB, dialect orm.Dialect) error {
	migrations, err := demo.Migrations(dialect.Name())
	if err != nil {
		return err
	}
	return db.Migrate(ctx, conn, dialect.Name(), migrations, cfg.Database.MigrationsTable, log)
}
