package cmd

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dmitrymomot/crudforge/pkg/db"
	"github.com/dmitrymomot/crudforge/pkg/logger"
	"github.com/dmitrymomot/crudforge/pkg/redis"
)

// envPrefix namespaces environment overrides, e.g. CRUDFORGE_DATABASE_DSN.
const envPrefix = "CRUDFORGE"

// Config is the process configuration assembled from flags, the config file
// and the environment, in that order of precedence.
type Config struct {
	Log      logger.Config `mapstructure:"log"`
	Database db.Config     `mapstructure:"database"`
	Redis    redis.Config  `mapstructure:"redis"`

	Addr            string        `mapstructure:"addr"`
	Prefix          string        `mapstructure:"prefix"`
	Title           string        `mapstructure:"title"`
	Catalog         string        `mapstructure:"catalog"`
	Templates       string        `mapstructure:"templates"`
	PageSize        int           `mapstructure:"page_size"`
	CountCacheTTL   time.Duration `mapstructure:"count_cache_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	dbc := db.DefaultConfig()
	rc := redis.DefaultConfig()

	defaults := map[string]any{
		"log.level":              "info",
		"log.format":             logger.FormatJSON,
		"log.sentry.dsn":         "",
		"log.sentry.environment": "development",
		"log.sentry.min_level":   "warn",

		"database.driver":             dbc.Driver,
		"database.dsn":                "",
		"database.migrations_table":   dbc.MigrationsTable,
		"database.max_open_conns":     dbc.MaxOpenConns,
		"database.max_idle_conns":     dbc.MaxIdleConns,
		"database.max_conn_idle_time": dbc.MaxConnIdleTime,
		"database.max_conn_lifetime":  dbc.MaxConnLifetime,
		"database.retry_attempts":     dbc.RetryAttempts,
		"database.retry_interval":     dbc.RetryInterval,

		"redis.url":             "",
		"redis.pool_size":       rc.PoolSize,
		"redis.min_idle_conns":  rc.MinIdleConns,
		"redis.max_idle_time":   rc.MaxIdleTime,
		"redis.max_active_time": rc.MaxActiveTime,
		"redis.read_timeout":    rc.ReadTimeout,
		"redis.write_timeout":   rc.WriteTimeout,
		"redis.dial_timeout":    rc.DialTimeout,
		"redis.retry_attempts":  rc.RetryAttempts,
		"redis.retry_interval":  rc.RetryInterval,

		"addr":             ":8080",
		"prefix":           "/admin",
		"title":            "Dashboard",
		"catalog":          "",
		"templates":        "",
		"page_size":        20,
		"count_cache_ttl":  time.Minute,
		"shutdown_timeout": 30 * time.Second,
		"auto_migrate":     false,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// loadConfig reads the optional config file and decodes the merged settings.
func loadConfig(v *viper.Viper, file string) (Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("crudforge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/crudforge")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
