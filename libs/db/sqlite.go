package db

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const SQLiteDriver = "sqlite3"

// OpenSQLite opens a sqlite database through sqlx. A single connection is used so
// that ":memory:" databases stay consistent across queries.
func OpenSQLite(ctx context.Context, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, SQLiteDriver, dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}

func SQLiteReadyCheck(conn *sqlx.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		if conn == nil {
			return errors.New("sqlite not configured")
		}
		return conn.PingContext(ctx)
	}
}
