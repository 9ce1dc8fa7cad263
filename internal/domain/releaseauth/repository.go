package releaseauth

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . SignerRepository,NonceStore

import (
	"context"
	"time"
)

// SignerRepository persists the release signer registry.
type SignerRepository interface {
	// Create registers a signer, failing with ErrDuplicateSigner when the
	// signer id is taken.
	Create(ctx context.Context, s *Signer) error
	// GetBySignerID returns the signer or (nil, nil) when absent.
	GetBySignerID(ctx context.Context, signerID string) (*Signer, error)
	List(ctx context.Context, includeRevoked bool) ([]*Signer, error)
	// Revoke marks a signer revoked, failing with ErrSignerNotFound when
	// absent. Revocation is permanent.
	Revoke(ctx context.Context, signerID string, now time.Time) error
}

// NonceStore records consumed voucher nonces. MarkUsed is the replay gate:
// the existence check and the write happen as one atomic step.
type NonceStore interface {
	// MarkUsed records the nonce, failing with ErrNonceUsed when it was
	// already consumed.
	MarkUsed(ctx context.Context, nonce string, now time.Time) error
}
