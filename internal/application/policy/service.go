package policy

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/policy"
)

// Service manages lock-time guard rules. Rule changes are admin-gated at
// the HTTP layer; evaluation happens inside the settlement engine.
type Service struct {
	repo     policy.Repository
	auditSvc *appAudit.Service
	logger   zerolog.Logger
}

// NewService creates a policy rule service.
func NewService(repo policy.Repository, auditSvc *appAudit.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		auditSvc: auditSvc,
		logger:   logger.With().Str("service", "policy").Logger(),
	}
}

// CreateInput defines rule creation input.
type CreateInput struct {
	Name        string
	Description string
	Expression  string
}

// Create compiles and stores a new active rule. Malformed expressions fail
// here rather than on the lock path.
func (s *Service) Create(ctx context.Context, input CreateInput, actor string) (*policy.Rule, error) {
	createdBy := &actor
	rule, err := policy.NewRule(input.Name, input.Description, input.Expression, createdBy)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypePolicy,
		EntityID:   rule.RuleID.String(),
		Action:     audit.ActionCreate,
		Actor:      actor,
		NewValues:  rule,
	})
	s.logger.Info().Str("ruleId", rule.RuleID.String()).Str("name", rule.Name).Msg("policy rule created")
	return rule, nil
}

// SetStatus activates, deactivates, or archives a rule.
func (s *Service) SetStatus(ctx context.Context, ruleID uuid.UUID, status policy.RuleStatus, actor string) error {
	if err := policy.ValidateStatus(status); err != nil {
		return err
	}
	rule, err := s.repo.GetByRuleID(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule == nil {
		return policy.ErrNotFound
	}
	updatedBy := &actor
	if err := s.repo.UpdateStatus(ctx, ruleID, status, updatedBy); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypePolicy,
		EntityID:   ruleID.String(),
		Action:     audit.ActionUpdate,
		Actor:      actor,
		OldValues:  map[string]string{"status": string(rule.Status)},
		NewValues:  map[string]string{"status": string(status)},
	})
	return nil
}

// Archive retires a rule so it no longer gates locks.
func (s *Service) Archive(ctx context.Context, ruleID uuid.UUID, actor string) error {
	return s.SetStatus(ctx, ruleID, policy.RuleStatusArchived, actor)
}

func (s *Service) Get(ctx context.Context, ruleID uuid.UUID) (*policy.Rule, error) {
	return s.repo.GetByRuleID(ctx, ruleID)
}

func (s *Service) List(ctx context.Context, filter policy.Filter) ([]*policy.Rule, error) {
	return s.repo.List(ctx, filter)
}
