package params

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import "context"

// Repository persists the parameters singleton.
type Repository interface {
	// Create stores the initial parameter set, failing with
	// ErrAlreadyInitialized if one exists.
	Create(ctx context.Context, p *Parameters) error
	// Get returns the parameter set or (nil, nil) before initialization.
	Get(ctx context.Context) (*Parameters, error)
	// Update replaces the stored set, failing with ErrNotInitialized if
	// none exists.
	Update(ctx context.Context, p *Parameters) error
}
