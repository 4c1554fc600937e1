// Package redis opens the Redis client that backs the shared paginator
// count cache.
//
// This package wraps [github.com/redis/go-redis/v9]. The connection is
// described by a [Config] bound from the "redis" config section:
//
//	redis:
//	  url: redis://localhost:6379/0
//	  pool_size: 10
//	  retry_attempts: 3
//
// [Open] pings the server and retries with a linear backoff before giving
// up. [Healthcheck] plugs into the readiness probe and [Shutdown] into the
// server shutdown hooks:
//
//	client, err := redis.Open(ctx, cfg.Redis)
//	if err != nil {
//	    return err
//	}
//	crudforge.WithHealthChecks(crudforge.WithReadinessCheck("redis", redis.Healthcheck(client)))
//	crudforge.ShutdownHook(redis.Shutdown(client))
//
// # Error Handling
//
//   - [ErrEmptyConnectionURL] - Empty connection URL provided
//   - [ErrFailedToParseURL] - Invalid connection URL format or scheme
//   - [ErrConnectionFailed] - Connection failed after all retry attempts
//   - [ErrHealthcheckFailed] - Redis ping failed
package redis
