package authtoken

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for login tokens.
type Repository interface {
	Create(ctx context.Context, token *Token) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*Token, error)
	DeleteByID(ctx context.Context, tokenID uuid.UUID) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	UpdateLastSeen(ctx context.Context, tokenID uuid.UUID) error
	DeleteExpired(ctx context.Context) (int, error)
}
