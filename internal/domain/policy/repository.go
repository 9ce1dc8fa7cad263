package policy

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows rule listings.
type Filter struct {
	Status *RuleStatus
}

// Repository defines the interface for guard rule persistence
type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	// GetByRuleID returns the rule or (nil, nil) when absent.
	GetByRuleID(ctx context.Context, ruleID uuid.UUID) (*Rule, error)
	List(ctx context.Context, filter Filter) ([]*Rule, error)
	// ListActive returns the rules evaluated on the lock path.
	ListActive(ctx context.Context) ([]*Rule, error)
	Update(ctx context.Context, rule *Rule) error
	UpdateStatus(ctx context.Context, ruleID uuid.UUID, status RuleStatus, updatedBy *string) error
}
