package ledger

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/ledger"
	"github.com/settlement-hub/settlement-hub/internal/domain/money"
)

// Service exposes ledger reads and administrative funding. Settlement-driven
// transfers go through the engine, not here.
type Service struct {
	ledger   ledger.Ledger
	lister   ledger.BalanceLister
	auditSvc *appAudit.Service
	logger   zerolog.Logger
}

// NewService creates a ledger service.
func NewService(l ledger.Ledger, lister ledger.BalanceLister, auditSvc *appAudit.Service, logger zerolog.Logger) *Service {
	return &Service{
		ledger:   l,
		lister:   lister,
		auditSvc: auditSvc,
		logger:   logger.With().Str("service", "ledger").Logger(),
	}
}

// Balance returns one account/asset holding.
func (s *Service) Balance(ctx context.Context, account, asset string) (decimal.Decimal, error) {
	return s.ledger.Balance(ctx, account, asset)
}

// Balances returns all of an account's holdings keyed by asset.
func (s *Service) Balances(ctx context.Context, account string) (map[string]decimal.Decimal, error) {
	return s.lister.Balances(ctx, account)
}

// Credit mints funds into an account. Administrative funding only; the
// caller must already be role-gated.
func (s *Service) Credit(ctx context.Context, account, asset string, amount decimal.Decimal, actor string) error {
	if err := money.ValidateAmount(amount); err != nil {
		return err
	}
	if err := s.ledger.Credit(ctx, account, asset, amount); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeLedger,
		EntityID:   account,
		Action:     audit.ActionCredit,
		Actor:      actor,
		NewValues: map[string]string{
			"account": account,
			"asset":   asset,
			"amount":  amount.String(),
		},
	})
	s.logger.Info().
		Str("account", account).
		Str("asset", asset).
		Str("amount", amount.String()).
		Str("actor", actor).
		Msg("account credited")
	return nil
}
