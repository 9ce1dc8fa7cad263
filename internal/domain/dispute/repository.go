package dispute

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists dispute records.
type Repository interface {
	// Create stores a new dispute, failing with ErrAlreadyOpen when the
	// session already has an open dispute.
	Create(ctx context.Context, d *Dispute) error
	// GetByDisputeID returns the dispute or (nil, nil) when absent.
	GetByDisputeID(ctx context.Context, disputeID uuid.UUID) (*Dispute, error)
	// GetOpenBySessionID returns the session's open dispute or (nil, nil).
	GetOpenBySessionID(ctx context.Context, sessionID string) (*Dispute, error)
	ListBySessionID(ctx context.Context, sessionID string) ([]*Dispute, error)
	List(ctx context.Context, status *Status, limit, offset int) ([]*Dispute, error)
	// Update replaces an existing dispute, failing with ErrNotFound.
	Update(ctx context.Context, d *Dispute) error
}
