package params

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/clock"
	"github.com/settlement-hub/settlement-hub/internal/domain/event"
	"github.com/settlement-hub/settlement-hub/internal/domain/params"
)

// Service manages the parameters singleton. Every successful mutation emits
// an old/new change event.
type Service struct {
	repo     params.Repository
	emitter  event.Emitter
	auditSvc *appAudit.Service
	clk      clock.Clock
	logger   zerolog.Logger
}

// NewService creates a parameters service.
func NewService(repo params.Repository, emitter event.Emitter, auditSvc *appAudit.Service, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		emitter:  emitter,
		auditSvc: auditSvc,
		clk:      clk,
		logger:   logger.With().Str("service", "params").Logger(),
	}
}

// Initialize creates the parameter set with the caller as administrator.
// It fails once a set exists, whoever calls it.
func (s *Service) Initialize(ctx context.Context, caller, treasury string, feeBps int, window time.Duration) (*params.Parameters, error) {
	existing, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}
	if existing != nil {
		return nil, params.ErrAlreadyInitialized
	}

	p, err := params.New(caller, treasury, feeBps, window, s.clk.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.emitChange(ctx, "initialized", "", p.Admin, caller)
	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeParameters,
		EntityID:   "singleton",
		Action:     audit.ActionInitialize,
		Actor:      caller,
		NewValues:  p,
	})
	s.logger.Info().
		Str("admin", p.Admin).
		Str("treasury", p.Treasury).
		Int("feeBps", p.FeeBps).
		Dur("disputeWindow", p.DisputeWindow).
		Msg("parameters initialized")

	return p, nil
}

// Get returns the current parameter set.
func (s *Service) Get(ctx context.Context) (*params.Parameters, error) {
	return s.load(ctx)
}

// SetFeeBps changes the default fee rate applied to new sessions.
func (s *Service) SetFeeBps(ctx context.Context, caller string, bps int) (*params.Parameters, error) {
	p, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.RequireAdmin(caller); err != nil {
		return nil, err
	}

	old := p.FeeBps
	if err := p.SetFeeBps(bps, s.clk.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save parameters: %w", err)
	}

	s.emitChange(ctx, "fee_bps", strconv.Itoa(old), strconv.Itoa(bps), caller)
	s.auditChange(ctx, caller, map[string]int{"feeBps": old}, map[string]int{"feeBps": bps})
	s.logger.Info().Int("old", old).Int("new", bps).Str("actor", caller).Msg("fee bps changed")

	return p, nil
}

// SetDisputeWindow changes the window applied to newly locked sessions.
// Existing sessions keep the deadline computed at lock time.
func (s *Service) SetDisputeWindow(ctx context.Context, caller string, window time.Duration) (*params.Parameters, error) {
	p, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.RequireAdmin(caller); err != nil {
		return nil, err
	}

	old := p.DisputeWindow
	if err := p.SetDisputeWindow(window, s.clk.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save parameters: %w", err)
	}

	s.emitChange(ctx, "dispute_window", formatSeconds(old), formatSeconds(window), caller)
	s.auditChange(ctx, caller, map[string]int64{"disputeWindowSeconds": int64(old.Seconds())}, map[string]int64{"disputeWindowSeconds": int64(window.Seconds())})
	s.logger.Info().Dur("old", old).Dur("new", window).Str("actor", caller).Msg("dispute window changed")

	return p, nil
}

// SetTreasury changes the fee destination. Settlement reads the treasury
// live, so the change applies to every not-yet-settled session.
func (s *Service) SetTreasury(ctx context.Context, caller, treasury string) (*params.Parameters, error) {
	p, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.RequireAdmin(caller); err != nil {
		return nil, err
	}

	old := p.Treasury
	if err := p.SetTreasury(treasury, s.clk.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save parameters: %w", err)
	}

	s.emitChange(ctx, "treasury", old, treasury, caller)
	s.auditChange(ctx, caller, map[string]string{"treasury": old}, map[string]string{"treasury": treasury})
	s.logger.Info().Str("old", old).Str("new", treasury).Str("actor", caller).Msg("treasury changed")

	return p, nil
}

func (s *Service) load(ctx context.Context) (*params.Parameters, error) {
	p, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}
	if p == nil {
		return nil, params.ErrNotInitialized
	}
	p.Migrate()
	return p, nil
}

func (s *Service) emitChange(ctx context.Context, field, old, new, actor string) {
	evt, err := event.New(event.TypeParamChanged, "", event.ParamChangedPayload{
		Field: field,
		Old:   old,
		New:   new,
		Actor: actor,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("field", field).Msg("failed to build param change event")
		return
	}
	s.emitter.Emit(ctx, evt)
}

func (s *Service) auditChange(ctx context.Context, actor string, oldValues, newValues any) {
	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeParameters,
		EntityID:   "singleton",
		Action:     audit.ActionUpdate,
		Actor:      actor,
		OldValues:  oldValues,
		NewValues:  newValues,
	})
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(d.Seconds()), 10)
}
