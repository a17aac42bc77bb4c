package connector

import (
	"context"
	"fmt"

	"github.com/Konsultn-Engineering/quest/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

func parseConfig(cfg Config, opts Options) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.ConnectTimeout > 0 {
		cc.ConnectTimeout = cfg.ConnectTimeout
	}
	if opts.Tracer != nil {
		cc.Tracer = opts.Tracer
	}
	return cc, nil
}

func connectPgx(ctx context.Context, cfg Config, opts Options) (database.Conn, error) {
	cc, err := parseConfig(cfg, opts)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.ConnectConfig(ctx, cc)
	if err != nil {
		return nil, err
	}
	return database.NewPgxConn(conn), nil
}

// connectStdlib routes through database/sql with a pool pinned to one
// connection, so session state such as an open transaction is shared by
// every statement.
func connectStdlib(ctx context.Context, cfg Config, opts Options) (database.Conn, error) {
	cc, err := parseConfig(cfg, opts)
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*cc)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	conn, err := database.NewSqlConn(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return conn, nil
}
