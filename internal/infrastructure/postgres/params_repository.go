package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/settlement-hub/settlement-hub/internal/domain/params"
)

// ParamsRepository implements params.Repository over a single-row table.
// The singleton CHECK constraint makes a second Create fail at the database,
// not just in application logic.
type ParamsRepository struct {
	pool *pgxpool.Pool
}

func NewParamsRepository(pool *pgxpool.Pool) *ParamsRepository {
	return &ParamsRepository{pool: pool}
}

func (r *ParamsRepository) Create(ctx context.Context, p *params.Parameters) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO engine_params
		(singleton, version, admin, treasury, fee_bps, dispute_window, created_at, updated_at)
		VALUES (TRUE,$1,$2,$3,$4,$5,$6,$7)
	`, p.Version, p.Admin, p.Treasury, p.FeeBps, int64(p.DisputeWindow.Seconds()), p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return params.ErrAlreadyInitialized
	}
	return err
}

func (r *ParamsRepository) Get(ctx context.Context) (*params.Parameters, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT version, admin, treasury, fee_bps, dispute_window, created_at, updated_at
		FROM engine_params WHERE singleton
	`)
	var p params.Parameters
	var windowSeconds int64
	if err := row.Scan(&p.Version, &p.Admin, &p.Treasury, &p.FeeBps, &windowSeconds, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.DisputeWindow = time.Duration(windowSeconds) * time.Second
	return &p, nil
}

func (r *ParamsRepository) Update(ctx context.Context, p *params.Parameters) error {
	res, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE engine_params
		SET version=$1, admin=$2, treasury=$3, fee_bps=$4, dispute_window=$5, updated_at=$6
		WHERE singleton
	`, p.Version, p.Admin, p.Treasury, p.FeeBps, int64(p.DisputeWindow.Seconds()), p.UpdatedAt)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return params.ErrNotInitialized
	}
	return nil
}
