package signer

import (
	"context"

	"github.com/rs/zerolog"

	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/clock"
	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
)

// Service manages the release signer registry. All mutations are
// admin-gated at the HTTP layer.
type Service struct {
	repo     releaseauth.SignerRepository
	auditSvc *appAudit.Service
	clk      clock.Clock
	logger   zerolog.Logger
}

// NewService creates a signer registry service.
func NewService(repo releaseauth.SignerRepository, auditSvc *appAudit.Service, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		auditSvc: auditSvc,
		clk:      clk,
		logger:   logger.With().Str("service", "signer").Logger(),
	}
}

// Add registers a new ed25519 signer key.
func (s *Service) Add(ctx context.Context, signerID, publicKey, description, actor string) (*releaseauth.Signer, error) {
	sg, err := releaseauth.NewSigner(signerID, publicKey, description, actor, s.clk.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sg); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeSigner,
		EntityID:   sg.SignerID,
		Action:     audit.ActionCreate,
		Actor:      actor,
		NewValues:  sg,
	})
	s.logger.Info().Str("signerId", sg.SignerID).Str("actor", actor).Msg("signer registered")
	return sg, nil
}

// Revoke permanently disables a signer key. Vouchers signed by it stop
// verifying immediately.
func (s *Service) Revoke(ctx context.Context, signerID, actor string) error {
	if err := s.repo.Revoke(ctx, signerID, s.clk.Now()); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeSigner,
		EntityID:   signerID,
		Action:     audit.ActionDelete,
		Actor:      actor,
	})
	s.logger.Info().Str("signerId", signerID).Str("actor", actor).Msg("signer revoked")
	return nil
}

func (s *Service) Get(ctx context.Context, signerID string) (*releaseauth.Signer, error) {
	return s.repo.GetBySignerID(ctx, signerID)
}

func (s *Service) List(ctx context.Context, includeRevoked bool) ([]*releaseauth.Signer, error) {
	return s.repo.List(ctx, includeRevoked)
}
