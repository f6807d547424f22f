package app

import (
	"net/http"

	migrate "github.com/golang-migrate/migrate/v4"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RunMigrations applies pending migrations. An up-to-date schema is not an error.
func RunMigrations(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// NewSignupLimiter builds an IP rate limit middleware for account creation.
// Rate uses limiter's formatted syntax, e.g. "10-H" for ten per hour.
func NewSignupLimiter(rdb *redis.Client, rate string) (func(http.Handler) http.Handler, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "rl:signup"})
	if err != nil {
		return nil, err
	}
	mw := mhttp.NewMiddleware(limiter.New(store, parsed))
	return func(next http.Handler) http.Handler {
		return mw.Handler(next)
	}, nil
}
