package redis

import "time"

// Config holds Redis connection parameters.
// Fields are bound by viper from the "redis" section or REDIS_* env vars.
type Config struct {
	// URL uses the redis:// or rediss:// (TLS) scheme. Empty disables Redis.
	URL string `mapstructure:"url"`

	PoolSize      int           `mapstructure:"pool_size"`
	MinIdleConns  int           `mapstructure:"min_idle_conns"`
	MaxIdleTime   time.Duration `mapstructure:"max_idle_time"`
	MaxActiveTime time.Duration `mapstructure:"max_active_time"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`

	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// DefaultConfig returns pool settings for a single admin process.
func DefaultConfig() Config {
	return Config{
		PoolSize:      10,
		MinIdleConns:  2,
		MaxIdleTime:   10 * time.Minute,
		MaxActiveTime: 30 * time.Minute,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		DialTimeout:   5 * time.Second,
		RetryAttempts: 3,
		RetryInterval: 2 * time.Second,
	}
}

// Enabled reports whether a URL is configured.
func (c Config) Enabled() bool { return c.URL != "" }
