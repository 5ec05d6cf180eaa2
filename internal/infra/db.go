package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbConnectTimeout = 10 * time.Second
	dbPingAttempts   = 3
)

// NewDBPool opens the scene store pool. Postgres often comes up after the API
// in compose setups, so the first ping is retried a few times before giving up.
func NewDBPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	// one connection per in-flight scene plus headroom for status polling
	poolCfg.MaxConns = int32(max(cfg.MaxScenes/2, 4) + 4)
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	var pingErr error
	for attempt := 1; attempt <= dbPingAttempts; attempt++ {
		if pingErr = pool.Ping(connectCtx); pingErr == nil {
			return pool, nil
		}
		if attempt == dbPingAttempts {
			break
		}
		select {
		case <-connectCtx.Done():
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", pingErr)
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	pool.Close()
	return nil, fmt.Errorf("ping database: %w", pingErr)
}
