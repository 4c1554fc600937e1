package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dmitrymomot/crudforge/middlewares"
	"github.com/dmitrymomot/crudforge/pkg/logger"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     Config
	log     *slog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "crudforge",
	Short: "Admin CRUD dashboard for SQL databases",
	Long: `crudforge serves list, detail, edit and delete pages for the entities
described in a YAML catalog, backed by PostgreSQL or MySQL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := loadConfig(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		log = logger.New(cfg.Log, middlewares.RequestIDExtractor())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./crudforge.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("driver", "pgx", "database driver: pgx or mysql")
	flags.String("dsn", "", "database connection string; mysql DSNs get parseTime=true")

	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("database.driver", flags.Lookup("driver"))
	_ = v.BindPFlag("database.dsn", flags.Lookup("dsn"))

	rootCmd.AddCommand(serveCmd, migrateCmd)
}
