package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/settlement-hub/settlement-hub/internal/domain/authtoken"
)

// AuthTokenRepository implements authtoken.Repository.
type AuthTokenRepository struct {
	pool *pgxpool.Pool
}

func NewAuthTokenRepository(pool *pgxpool.Pool) *AuthTokenRepository {
	return &AuthTokenRepository{pool: pool}
}

func (r *AuthTokenRepository) Create(ctx context.Context, t *authtoken.Token) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO auth_tokens
		(token_id, token_hash, account, created_at, expires_at, last_seen_at, user_agent, ip_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, t.TokenID, t.TokenHash, t.Account, t.CreatedAt, t.ExpiresAt, t.LastSeenAt, t.UserAgent, t.IPAddress)
	return err
}

func (r *AuthTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*authtoken.Token, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT id, token_id, token_hash, account, created_at, expires_at, last_seen_at, user_agent, ip_address
		FROM auth_tokens WHERE token_hash=$1
	`, tokenHash)
	var t authtoken.Token
	if err := row.Scan(&t.ID, &t.TokenID, &t.TokenHash, &t.Account, &t.CreatedAt, &t.ExpiresAt, &t.LastSeenAt, &t.UserAgent, &t.IPAddress); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *AuthTokenRepository) DeleteByID(ctx context.Context, tokenID uuid.UUID) error {
	_, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM auth_tokens WHERE token_id=$1`, tokenID)
	return err
}

func (r *AuthTokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM auth_tokens WHERE token_hash=$1`, tokenHash)
	return err
}

func (r *AuthTokenRepository) UpdateLastSeen(ctx context.Context, tokenID uuid.UUID) error {
	_, err := db(ctx, r.pool).Exec(ctx, `UPDATE auth_tokens SET last_seen_at=$1 WHERE token_id=$2`, time.Now().UTC(), tokenID)
	return err
}

func (r *AuthTokenRepository) DeleteExpired(ctx context.Context) (int, error) {
	res, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return int(res.RowsAffected()), nil
}
