package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/settlement-hub/settlement-hub/internal/domain/ledger"
)

// Ledger implements ledger.Ledger over the ledger_balances table. Transfer
// locks the source row FOR UPDATE, so two settlements draining the same
// account serialize at the database even without the engine mutex.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Balance(ctx context.Context, account, asset string) (decimal.Decimal, error) {
	row := db(ctx, l.pool).QueryRow(ctx, `
		SELECT balance::text FROM ledger_balances WHERE account=$1 AND asset=$2
	`, account, asset)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (l *Ledger) Credit(ctx context.Context, account, asset string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", ledger.ErrTransfer)
	}
	_, err := db(ctx, l.pool).Exec(ctx, `
		INSERT INTO ledger_balances (account, asset, balance, updated_at)
		VALUES ($1,$2,$3::numeric,$4)
		ON CONFLICT (account, asset)
		DO UPDATE SET balance = ledger_balances.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	`, account, asset, amount.String(), time.Now().UTC())
	return err
}

func (l *Ledger) Transfer(ctx context.Context, from, to, asset string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ledger.ErrTransfer)
	}
	q := db(ctx, l.pool)

	row := q.QueryRow(ctx, `
		SELECT balance::text FROM ledger_balances WHERE account=$1 AND asset=$2 FOR UPDATE
	`, from, asset)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrInsufficientBalance
		}
		return err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return ledger.ErrInsufficientBalance
	}

	now := time.Now().UTC()
	if _, err := q.Exec(ctx, `
		UPDATE ledger_balances SET balance = balance - $1::numeric, updated_at=$2
		WHERE account=$3 AND asset=$4
	`, amount.String(), now, from, asset); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrTransfer, err)
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO ledger_balances (account, asset, balance, updated_at)
		VALUES ($1,$2,$3::numeric,$4)
		ON CONFLICT (account, asset)
		DO UPDATE SET balance = ledger_balances.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	`, to, asset, amount.String(), now); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrTransfer, err)
	}
	return nil
}

// Balances returns every asset balance held by an account.
func (l *Ledger) Balances(ctx context.Context, account string) (map[string]decimal.Decimal, error) {
	rows, err := db(ctx, l.pool).Query(ctx, `
		SELECT asset, balance::text FROM ledger_balances WHERE account=$1 ORDER BY asset
	`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var asset, raw string
		if err := rows.Scan(&asset, &raw); err != nil {
			return nil, err
		}
		bal, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		out[asset] = bal
	}
	return out, rows.Err()
}
