package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/settlement-hub/settlement-hub/internal/domain/dispute"
)

// DisputeRepository implements dispute.Repository. The partial unique index
// on open disputes backs ErrAlreadyOpen at the database level.
type DisputeRepository struct {
	pool *pgxpool.Pool
}

func NewDisputeRepository(pool *pgxpool.Pool) *DisputeRepository {
	return &DisputeRepository{pool: pool}
}

const disputeColumns = `id, dispute_id, session_id, raiser, reason, status, outcome, resolved_by, resolution_reason, created_at, resolved_at`

func (r *DisputeRepository) Create(ctx context.Context, d *dispute.Dispute) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO disputes
		(dispute_id, session_id, raiser, reason, status, outcome, resolved_by, resolution_reason, created_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, d.DisputeID, d.SessionID, d.Raiser, d.Reason, d.Status, d.Outcome, d.ResolvedBy, d.ResolutionReason, d.CreatedAt, d.ResolvedAt)
	if isUniqueViolation(err) {
		return dispute.ErrAlreadyOpen
	}
	return err
}

func (r *DisputeRepository) GetByDisputeID(ctx context.Context, disputeID uuid.UUID) (*dispute.Dispute, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+disputeColumns+` FROM disputes WHERE dispute_id=$1
	`, disputeID)
	return scanDispute(row)
}

func (r *DisputeRepository) GetOpenBySessionID(ctx context.Context, sessionID string) (*dispute.Dispute, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+disputeColumns+` FROM disputes WHERE session_id=$1 AND status='OPEN'
	`, sessionID)
	return scanDispute(row)
}

func (r *DisputeRepository) ListBySessionID(ctx context.Context, sessionID string) ([]*dispute.Dispute, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+disputeColumns+` FROM disputes WHERE session_id=$1 ORDER BY created_at DESC, id DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDisputes(rows)
}

func (r *DisputeRepository) List(ctx context.Context, status *dispute.Status, limit, offset int) ([]*dispute.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes`
	args := []interface{}{}
	idx := 1
	if status != nil {
		query += " WHERE status=$" + itoa(idx)
		args = append(args, *status)
		idx++
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDisputes(rows)
}

func (r *DisputeRepository) Update(ctx context.Context, d *dispute.Dispute) error {
	res, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE disputes
		SET status=$1, outcome=$2, resolved_by=$3, resolution_reason=$4, resolved_at=$5
		WHERE dispute_id=$6
	`, d.Status, d.Outcome, d.ResolvedBy, d.ResolutionReason, d.ResolvedAt, d.DisputeID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return dispute.ErrNotFound
	}
	return nil
}

func scanDispute(row pgx.Row) (*dispute.Dispute, error) {
	var d dispute.Dispute
	if err := row.Scan(&d.ID, &d.DisputeID, &d.SessionID, &d.Raiser, &d.Reason, &d.Status, &d.Outcome, &d.ResolvedBy, &d.ResolutionReason, &d.CreatedAt, &d.ResolvedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func collectDisputes(rows pgx.Rows) ([]*dispute.Dispute, error) {
	var disputes []*dispute.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}
