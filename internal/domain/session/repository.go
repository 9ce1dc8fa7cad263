package session

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import "context"

// Filter narrows session listings.
type Filter struct {
	Status  *Status
	Account *string // matches payer or payee
	Asset   *string
}

// Repository defines persistence for settlement sessions. InsertIfAbsent is
// the single uniqueness gate for session ids: the existence check and the
// write happen as one atomic step.
type Repository interface {
	// InsertIfAbsent stores a new session, failing with ErrDuplicateID if
	// the id is already present. It never overwrites.
	InsertIfAbsent(ctx context.Context, s *Session) error
	// Get returns the session or (nil, nil) when absent.
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Replace updates an existing session in place, failing with
	// ErrNotFound if the id is absent. It never creates.
	Replace(ctx context.Context, s *Session) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Session, error)
}
