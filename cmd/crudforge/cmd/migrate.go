package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/crudforge/pkg/db"
	"github.com/dmitrymomot/crudforge/pkg/orm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations of the demo schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dialect, err := orm.DialectFor(cfg.Database.Driver)
		if err != nil {
			return err
		}
		conn, err := db.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := migrate(ctx, conn, dialect); err != nil {
			return err
		}
		log.InfoContext(ctx, "migrations applied", "dialect", dialect.Name())
		return nil
	},
}
