package policy

import (
	"errors"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"
)

// RuleStatus represents the lifecycle status of a guard rule
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "ACTIVE"
	RuleStatusInactive RuleStatus = "INACTIVE"
	RuleStatusArchived RuleStatus = "ARCHIVED"
)

var (
	ErrNotFound          = errors.New("policy rule not found")
	ErrInvalidExpression = errors.New("invalid rule expression")
	ErrInvalidStatus     = errors.New("invalid rule status")
	ErrViolation         = errors.New("lock denied by guard policy")
)

// Rule is an administrator-managed guard evaluated against every lock
// request. A rule whose expression evaluates true denies the lock.
type Rule struct {
	ID          int64      `json:"id"`
	RuleID      uuid.UUID  `json:"ruleId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Expression  string     `json:"expression"`
	Status      RuleStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   *string    `json:"createdBy,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	UpdatedBy   *string    `json:"updatedBy,omitempty"`
}

// NewRule builds an active rule after compiling the expression once to catch
// syntax errors at creation time rather than on the lock path.
func NewRule(name, description, expression string, createdBy *string) (*Rule, error) {
	if err := ValidateExpression(expression); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Rule{
		RuleID:      uuid.New(),
		Name:        name,
		Description: description,
		Expression:  expression,
		Status:      RuleStatusActive,
		CreatedAt:   now,
		CreatedBy:   createdBy,
		UpdatedAt:   now,
		UpdatedBy:   createdBy,
	}, nil
}

// ValidateExpression compiles the expression and rejects empty or unparsable
// input.
func ValidateExpression(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return ErrInvalidExpression
	}
	if _, err := govaluate.NewEvaluableExpression(expression); err != nil {
		return ErrInvalidExpression
	}
	return nil
}

// ValidateStatus checks a status value received from the outside.
func ValidateStatus(status RuleStatus) error {
	switch status {
	case RuleStatusActive, RuleStatusInactive, RuleStatusArchived:
		return nil
	default:
		return ErrInvalidStatus
	}
}
