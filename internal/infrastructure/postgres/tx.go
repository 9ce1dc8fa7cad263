package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// DB is the subset of pgx shared by a pool and a transaction. Repositories
// issue queries through it so the same code runs inside and outside a scope.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxScope implements atomic.Scope over a pgx transaction. Every repository
// call made through the derived context joins the same transaction, so a
// failed settlement rolls back the session write and the balance moves
// together.
type TxScope struct {
	pool *pgxpool.Pool
}

func NewTxScope(pool *pgxpool.Pool) *TxScope {
	return &TxScope{pool: pool}
}

func (s *TxScope) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		// Already inside a scope; join it.
		return fn(ctx)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// db returns the transaction carried by ctx, or the pool outside a scope.
func db(ctx context.Context, pool *pgxpool.Pool) DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}
