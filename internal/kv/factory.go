// Package kv selects the key-value backend that mirrors the ledger state.
package kv

import (
	"context"
	"fmt"
	"qcledger/internal/config"
	kvmemory "qcledger/internal/infra/kv/memory"
	kvpostgres "qcledger/internal/infra/kv/postgres"
	kvredis "qcledger/internal/infra/kv/redis"
	kvsqlite "qcledger/internal/infra/kv/sqlite"
	"qcledger/pkg/domain"
)

// Open constructs the configured backend. An empty driver means sqlite.
func Open(ctx context.Context, cfg config.Storage) (domain.KeyValueStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}
	switch driver {
	case config.DriverMemory:
		return kvmemory.NewStore(), nil
	case config.DriverSQLite:
		return kvsqlite.NewStore(cfg.SQLitePath)
	case config.DriverPostgres:
		return kvpostgres.NewStore(ctx, cfg.PostgresDSN)
	case config.DriverRedis:
		return kvredis.NewStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
