package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
)

// SignerRepository implements releaseauth.SignerRepository.
type SignerRepository struct {
	pool *pgxpool.Pool
}

func NewSignerRepository(pool *pgxpool.Pool) *SignerRepository {
	return &SignerRepository{pool: pool}
}

const signerColumns = `id, signer_id, public_key, description, created_at, created_by, revoked_at`

func (r *SignerRepository) Create(ctx context.Context, s *releaseauth.Signer) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO release_signers
		(signer_id, public_key, description, created_at, created_by, revoked_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, s.SignerID, s.PublicKey, s.Description, s.CreatedAt, s.CreatedBy, s.RevokedAt)
	if isUniqueViolation(err) {
		return releaseauth.ErrDuplicateSigner
	}
	return err
}

func (r *SignerRepository) GetBySignerID(ctx context.Context, signerID string) (*releaseauth.Signer, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+signerColumns+` FROM release_signers WHERE signer_id=$1
	`, signerID)
	return scanSigner(row)
}

func (r *SignerRepository) List(ctx context.Context, includeRevoked bool) ([]*releaseauth.Signer, error) {
	query := `SELECT ` + signerColumns + ` FROM release_signers`
	if !includeRevoked {
		query += ` WHERE revoked_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signers []*releaseauth.Signer
	for rows.Next() {
		s, err := scanSigner(rows)
		if err != nil {
			return nil, err
		}
		signers = append(signers, s)
	}
	return signers, rows.Err()
}

func (r *SignerRepository) Revoke(ctx context.Context, signerID string, now time.Time) error {
	res, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE release_signers SET revoked_at=$1 WHERE signer_id=$2 AND revoked_at IS NULL
	`, now, signerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return releaseauth.ErrSignerNotFound
	}
	return nil
}

func scanSigner(row pgx.Row) (*releaseauth.Signer, error) {
	var s releaseauth.Signer
	if err := row.Scan(&s.ID, &s.SignerID, &s.PublicKey, &s.Description, &s.CreatedAt, &s.CreatedBy, &s.RevokedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// NonceStore implements releaseauth.NonceStore. The primary key on nonce is
// the replay gate.
type NonceStore struct {
	pool *pgxpool.Pool
}

func NewNonceStore(pool *pgxpool.Pool) *NonceStore {
	return &NonceStore{pool: pool}
}

func (n *NonceStore) MarkUsed(ctx context.Context, nonce string, now time.Time) error {
	_, err := db(ctx, n.pool).Exec(ctx, `
		INSERT INTO voucher_nonces (nonce, used_at) VALUES ($1,$2)
	`, nonce, now)
	if isUniqueViolation(err) {
		return releaseauth.ErrNonceUsed
	}
	return err
}
