package storage

import (
	"context"
	"fmt"

	"car-deal-finder/config"
	"car-deal-finder/utils"
)

// Open returns the ListingStore selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (ListingStore, error) {
	sc := cfg.Store
	logger.Info("[storage] Opening %s store", sc.Driver)

	switch sc.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN(), sc.Postgres.MaxConns, logger)
	case config.DriverPgx:
		return NewPgxStore(ctx, cfg.PostgresDSN(), sc.Postgres.MaxConns, logger)
	case config.DriverSQLite:
		return NewSQLiteStore(ctx, sc.SQLitePath)
	case config.DriverBolt:
		return NewBoltStore(sc.BoltPath)
	case config.DriverRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
			Prefix:   sc.Redis.Prefix,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalid, sc.Driver)
	}
}
