package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Querier is what both the pool and an open transaction offer.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TxRunner interface {
	// InTx commits when fn returns nil and rolls back otherwise, panics included.
	InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error
	Querier() Querier
}

type Postgres struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

func (p *Postgres) Querier() Querier { return p.pool }

func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	err := pgx.BeginTxFunc(ctx, p.pool, p.opts, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
	return errors.Wrap(err, "tx")
}

func (p *Postgres) Close() { p.pool.Close() }
