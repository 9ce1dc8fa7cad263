package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/settlement-hub/settlement-hub/internal/domain/session"
)

// SessionRepository implements session.Repository. Amounts are stored as
// NUMERIC(39,0) and scanned through text to keep decimal exactness.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `version, session_id, payer, payee, asset, amount::text, fee_bps, status, created_at, updated_at, dispute_deadline, payer_approved, payee_approved, approved_at`

func (r *SessionRepository) InsertIfAbsent(ctx context.Context, s *session.Session) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO settlement_sessions
		(version, session_id, payer, payee, asset, amount, fee_bps, status, created_at, updated_at, dispute_deadline, payer_approved, payee_approved, approved_at)
		VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9,$10,$11,$12,$13,$14)
	`, s.Version, s.SessionID, s.Payer, s.Payee, s.Asset, s.Amount.String(), s.FeeBps, s.Status, s.CreatedAt, s.UpdatedAt, s.DisputeDeadline, s.PayerApproved, s.PayeeApproved, s.ApprovedAt)
	if isUniqueViolation(err) {
		return session.ErrDuplicateID
	}
	return err
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM settlement_sessions WHERE session_id=$1
	`, sessionID)
	return scanSession(row)
}

func (r *SessionRepository) Replace(ctx context.Context, s *session.Session) error {
	res, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE settlement_sessions
		SET version=$1, status=$2, updated_at=$3, payer_approved=$4, payee_approved=$5, approved_at=$6
		WHERE session_id=$7
	`, s.Version, s.Status, s.UpdatedAt, s.PayerApproved, s.PayeeApproved, s.ApprovedAt, s.SessionID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) List(ctx context.Context, filter session.Filter, limit, offset int) ([]*session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM settlement_sessions`
	args := []interface{}{}
	idx := 1
	if filter.Status != nil {
		query += " WHERE status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Account != nil {
		query += addWhere(query) + " (payer=$" + itoa(idx) + " OR payee=$" + itoa(idx) + ")"
		args = append(args, *filter.Account)
		idx++
	}
	if filter.Asset != nil {
		query += addWhere(query) + " asset=$" + itoa(idx)
		args = append(args, *filter.Asset)
		idx++
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var s session.Session
	var amount string
	var approvedAt *time.Time
	if err := row.Scan(&s.Version, &s.SessionID, &s.Payer, &s.Payee, &s.Asset, &amount, &s.FeeBps, &s.Status, &s.CreatedAt, &s.UpdatedAt, &s.DisputeDeadline, &s.PayerApproved, &s.PayeeApproved, &approvedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	s.Amount = amt
	s.ApprovedAt = approvedAt
	return &s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
