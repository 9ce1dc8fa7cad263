package atomic

import "context"

// Scope runs fn so that every repository and ledger write made through the
// derived context either commits together or rolls back together. Engine
// operations wrap their mutations in one scope, which is what makes a failed
// transfer abort the whole call with no partial state change.
type Scope interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}

// Noop runs fn directly. For callers that already are inside a scope or for
// tests that assert rollback behavior elsewhere.
type Noop struct{}

func (Noop) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
