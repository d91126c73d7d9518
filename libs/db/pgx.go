package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/md-rashed-zaman/slotengine/libs/config"
)

type Pool struct {
	*pgxpool.Pool
}

// PoolOptions overrides pool sizing. Zero values keep the defaults.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PoolOptionsFromEnv reads DB_MAX_CONNS, DB_MIN_CONNS, DB_MAX_CONN_LIFETIME and
// DB_MAX_CONN_IDLE_TIME.
func PoolOptionsFromEnv() (PoolOptions, error) {
	var opts PoolOptions
	maxConns, err := config.Int("DB_MAX_CONNS", 0)
	if err != nil {
		return opts, err
	}
	minConns, err := config.Int("DB_MIN_CONNS", 0)
	if err != nil {
		return opts, err
	}
	if maxConns < 0 || minConns < 0 {
		return opts, errors.New("DB_MAX_CONNS and DB_MIN_CONNS must not be negative")
	}
	opts.MaxConns, opts.MinConns = int32(maxConns), int32(minConns)
	if opts.MaxConnLifetime, err = config.Duration("DB_MAX_CONN_LIFETIME", 0); err != nil {
		return opts, err
	}
	if opts.MaxConnIdleTime, err = config.Duration("DB_MAX_CONN_IDLE_TIME", 0); err != nil {
		return opts, err
	}
	return opts, nil
}

func Open(ctx context.Context, databaseURL string, opts PoolOptions) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 && opts.MinConns <= cfg.MaxConns {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{Pool: pool}, nil
}

func (p *Pool) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

func ReadyCheck(pool *Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil || pool.Pool == nil {
			return errors.New("db not configured")
		}
		return pool.Ping(ctx)
	}
}
