package clients

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	DB *pgxpool.Pool
}

// NewPostgres opens a pool capped at a single connection; every write of a
// run goes through that one connection.
func NewPostgres(ctx context.Context, dsn string) (Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return Postgres{}, fmt.Errorf("[PostgresClient] invalid DSN: %w", err)
	}
	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return Postgres{}, fmt.Errorf("[PostgresClient] failed to create PostgreSQL client: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return Postgres{}, fmt.Errorf("[PostgresClient] failed to ping PostgreSQL: %w", err)
	}

	slog.Info("[PostgresClient] Connected to PostgreSQL successfully")
	return Postgres{DB: pool}, nil
}

func (p Postgres) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.DB.Begin(ctx)
}

func (p Postgres) Close() {
	if p.DB != nil {
		p.DB.Close()
	}
}
