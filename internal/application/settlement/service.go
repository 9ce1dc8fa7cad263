package settlement

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/atomic"
	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/clock"
	"github.com/settlement-hub/settlement-hub/internal/domain/dispute"
	"github.com/settlement-hub/settlement-hub/internal/domain/event"
	"github.com/settlement-hub/settlement-hub/internal/domain/ledger"
	"github.com/settlement-hub/settlement-hub/internal/domain/money"
	"github.com/settlement-hub/settlement-hub/internal/domain/params"
	"github.com/settlement-hub/settlement-hub/internal/domain/policy"
	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
	"github.com/settlement-hub/settlement-hub/internal/domain/session"
)

// Service is the settlement engine: it owns every session lifecycle
// transition. A single mutex serializes mutating operations so that each one
// runs start-to-finish against a stable view of the session, the ledger and
// the parameters; the atomic scope makes the storage effects of one
// operation commit or roll back as a unit.
type Service struct {
	mu sync.Mutex

	sessionRepo session.Repository
	paramsRepo  params.Repository
	disputeRepo dispute.Repository
	policyRepo  policy.Repository
	signerRepo  releaseauth.SignerRepository
	nonces      releaseauth.NonceStore
	ledger      ledger.Ledger
	scope       atomic.Scope
	clk         clock.Clock
	emitter     event.Emitter
	auditSvc    *appAudit.Service
	logger      zerolog.Logger
}

// NewService creates a settlement service.
func NewService(
	sessionRepo session.Repository,
	paramsRepo params.Repository,
	disputeRepo dispute.Repository,
	policyRepo policy.Repository,
	signerRepo releaseauth.SignerRepository,
	nonces releaseauth.NonceStore,
	ledger ledger.Ledger,
	scope atomic.Scope,
	clk clock.Clock,
	emitter event.Emitter,
	auditSvc *appAudit.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		paramsRepo:  paramsRepo,
		disputeRepo: disputeRepo,
		policyRepo:  policyRepo,
		signerRepo:  signerRepo,
		nonces:      nonces,
		ledger:      ledger,
		scope:       scope,
		clk:         clk,
		emitter:     emitter,
		auditSvc:    auditSvc,
		logger:      logger.With().Str("service", "settlement").Logger(),
	}
}

// LockInput carries a lock request. Caller is the authenticated account and
// must match Payer: only the fund source may move its own funds into custody.
type LockInput struct {
	SessionID string
	Payer     string
	Payee     string
	Asset     string
	Amount    decimal.Decimal
	FeeBps    int
	Caller    string
}

// Lock creates a session and moves the principal into custody. The session
// id is the idempotency key: re-locking an existing id always fails, whatever
// the other fields say.
func (s *Service) Lock(ctx context.Context, in LockInput) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadParams(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.SessionID) == "" || len(in.SessionID) > session.MaxIDLen {
		return nil, session.ErrInvalidSessionID
	}
	if in.Caller != in.Payer {
		return nil, session.ErrNotAuthorizedParty
	}
	if err := money.ValidateAmount(in.Amount); err != nil {
		return nil, session.ErrInvalidAmount
	}
	if in.Payer == in.Payee {
		return nil, session.ErrInvalidAmount
	}
	if err := money.ValidateBps(in.FeeBps); err != nil {
		return nil, err
	}
	if err := s.checkGuardRules(ctx, in); err != nil {
		return nil, err
	}

	// The projected fee is advisory at lock time; settlement recomputes it
	// from the frozen rate.
	_, fee, err := money.Split(in.Amount, in.FeeBps)
	if err != nil {
		return nil, session.ErrInvalidAmount
	}

	now := s.clk.Now()
	sess := session.NewLocked(in.SessionID, in.Payer, in.Payee, in.Asset, in.Amount, in.FeeBps, now, p.DisputeWindow)

	err = s.scope.Within(ctx, func(ctx context.Context) error {
		bal, err := s.ledger.Balance(ctx, in.Payer, in.Asset)
		if err != nil {
			return fmt.Errorf("failed to read payer balance: %w", err)
		}
		if bal.LessThan(in.Amount) {
			return ledger.ErrInsufficientBalance
		}
		if err := s.sessionRepo.InsertIfAbsent(ctx, sess); err != nil {
			return err
		}
		if err := s.ledger.Transfer(ctx, in.Payer, ledger.CustodyAccount, in.Asset, in.Amount); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, event.TypeFundsLocked, sess.SessionID, event.FundsLockedPayload{
		SessionID: sess.SessionID,
		Payer:     sess.Payer,
		Payee:     sess.Payee,
		Asset:     sess.Asset,
		Amount:    sess.Amount,
		Fee:       fee,
	})
	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeSession,
		EntityID:   sess.SessionID,
		Action:     audit.ActionLock,
		Actor:      in.Caller,
		NewValues:  sess,
		SessionID:  sess.SessionID,
	})
	s.logger.Info().
		Str("sessionId", sess.SessionID).
		Str("payer", sess.Payer).
		Str("payee", sess.Payee).
		Str("asset", sess.Asset).
		Str("amount", sess.Amount.String()).
		Int("feeBps", sess.FeeBps).
		Time("disputeDeadline", sess.DisputeDeadline).
		Msg("funds locked")

	return sess, nil
}

// Approve records one party's consent to release. Both flags set means the
// session can settle immediately, before the dispute window elapses.
func (s *Service) Approve(ctx context.Context, sessionID, caller string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusLocked {
		return nil, session.ErrInvalidStatus
	}
	party, ok := sess.PartyOf(caller)
	if !ok {
		return nil, session.ErrNotAuthorizedParty
	}

	now := s.clk.Now()
	if err := sess.Approve(party, now); err != nil {
		return nil, err
	}

	err = s.scope.Within(ctx, func(ctx context.Context) error {
		return s.sessionRepo.Replace(ctx, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save approval: %w", err)
	}

	s.emit(ctx, event.TypeSessionApproved, sess.SessionID, event.SessionApprovedPayload{
		SessionID:    sess.SessionID,
		Approver:     caller,
		BothApproved: sess.BothApproved(),
	})
	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeSession,
		EntityID:   sess.SessionID,
		Action:     audit.ActionApprove,
		Actor:      caller,
		SessionID:  sess.SessionID,
	})
	s.logger.Info().
		Str("sessionId", sess.SessionID).
		Str("approver", caller).
		Bool("bothApproved", sess.BothApproved()).
		Msg("session approved")

	return sess, nil
}

// Settle disburses custody funds and completes the session. It succeeds when
// both parties approved, or unconditionally once the dispute deadline has
// strictly passed. Any authenticated account may trigger it.
func (s *Service) Settle(ctx context.Context, sessionID, caller string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusLocked {
		return nil, session.ErrInvalidStatus
	}

	now := s.clk.Now()
	if !sess.CanSettle(now) {
		return nil, session.ErrDisputeWindowNotElapsed
	}

	p, err := s.loadParams(ctx)
	if err != nil {
		return nil, err
	}

	payeeShare, fee, err := s.disburse(ctx, sess, p.Treasury, now)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, event.TypeSessionCompleted, sess.SessionID, event.SessionCompletedPayload{
		SessionID:  sess.SessionID,
		Payee:      sess.Payee,
		PayeeShare: payeeShare,
		Fee:        fee,
		Treasury:   p.Treasury,
	})
	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeSession,
		EntityID:   sess.SessionID,
		Action:     audit.ActionSettle,
		Actor:      caller,
		NewValues:  sess,
		SessionID:  sess.SessionID,
	})
	s.logger.Info().
		Str("sessionId", sess.SessionID).
		Str("payee", sess.Payee).
		Str("payeeShare", payeeShare.String()).
		Str("fee", fee.String()).
		Str("treasury", p.Treasury).
		Msg("session settled")

	return sess, nil
}

// SettleWithVoucher settles or cancels a locked session on the authority of
// a registered release signer, bypassing the consent/deadline guard. The
// voucher nonce is consumed atomically with the disbursement, so a voucher
// is honored at most once even if the transfer fails and is retried.
func (s *Service) SettleWithVoucher(ctx context.Context, sessionID string, v releaseauth.Voucher, caller string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := v.Verify(); err != nil {
		return nil, fmt.Errorf("invalid voucher: %w", err)
	}
	if v.SessionID != sessionID {
		return nil, fmt.Errorf("invalid voucher: session mismatch")
	}

	signer, err := s.signerRepo.GetBySignerID(ctx, v.SignerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signer: %w", err)
	}
	if signer == nil {
		return nil, releaseauth.ErrSignerNotFound
	}
	now := s.clk.Now()
	if err := signer.Authorizes(v, now); err != nil {
		return nil, err
	}

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusLocked {
		return nil, session.ErrInvalidStatus
	}

	p, err := s.loadParams(ctx)
	if err != nil {
		return nil, err
	}

	var payeeShare, fee decimal.Decimal
	err = s.scope.Within(ctx, func(ctx context.Context) error {
		if err := s.nonces.MarkUsed(ctx, v.Nonce, now); err != nil {
			return err
		}
		switch v.Action {
		case releaseauth.ActionSettle:
			var derr error
			payeeShare, fee, derr = s.disburseWithin(ctx, sess, p.Treasury, now)
			return derr
		case releaseauth.ActionCancel:
			if err := s.ledger.Transfer(ctx, ledger.CustodyAccount, sess.Payer, sess.Asset, sess.Amount); err != nil {
				return err
			}
			if err := sess.Cancel(now); err != nil {
				return err
			}
			return s.sessionRepo.Replace(ctx, sess)
		default:
			return fmt.Errorf("invalid voucher: unsupported action %s", v.Action)
		}
	})
	if err != nil {
		return nil, err
	}

	switch v.Action {
	case releaseauth.ActionSettle:
		s.emit(ctx, event.TypeSessionCompleted, sess.SessionID, event.SessionCompletedPayload{
			SessionID:  sess.SessionID,
			Payee:      sess.Payee,
			PayeeShare: payeeShare,
			Fee:        fee,
			Treasury:   p.Treasury,
		})
	case releaseauth.ActionCancel:
		s.emit(ctx, event.TypeSessionCancelled, sess.SessionID, event.SessionCancelledPayload{
			SessionID: sess.SessionID,
			Payer:     sess.Payer,
			Refund:    sess.Amount,
			Via:       "VOUCHER",
		})
	}
	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeSession,
		EntityID:   sess.SessionID,
		Action:     audit.ActionSettle,
		Actor:      caller,
		Reason:     fmt.Sprintf("voucher %s by signer %s", v.VoucherID, v.SignerID),
		Tags:       []string{"voucher"},
		NewValues:  sess,
		SessionID:  sess.SessionID,
	})
	s.logger.Info().
		Str("sessionId", sess.SessionID).
		Str("voucherId", v.VoucherID).
		Str("signerId", v.SignerID).
		Str("action", string(v.Action)).
		Msg("session settled by voucher")

	return sess, nil
}

// OpenDispute freezes a locked session. Only a session party may raise one.
func (s *Service) OpenDispute(ctx context.Context, sessionID, caller, reason string) (*dispute.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusLocked {
		return nil, session.ErrInvalidStatus
	}
	if _, ok := sess.PartyOf(caller); !ok {
		return nil, session.ErrNotAuthorizedParty
	}

	existing, err := s.disputeRepo.GetOpenBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open disputes: %w", err)
	}
	if existing != nil {
		return nil, dispute.ErrAlreadyOpen
	}

	now := s.clk.Now()
	d := dispute.New(sessionID, caller, reason, now)
	if err := sess.Dispute(now); err != nil {
		return nil, err
	}

	err = s.scope.Within(ctx, func(ctx context.Context) error {
		if err := s.disputeRepo.Create(ctx, d); err != nil {
			return err
		}
		return s.sessionRepo.Replace(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, event.TypeDisputeOpened, sess.SessionID, event.DisputeOpenedPayload{
		SessionID: sess.SessionID,
		Raiser:    caller,
		Reason:    reason,
	})
	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeDispute,
		EntityID:   d.DisputeID.String(),
		Action:     audit.ActionDispute,
		Actor:      caller,
		Reason:     reason,
		SessionID:  sess.SessionID,
	})
	s.logger.Info().
		Str("sessionId", sess.SessionID).
		Str("disputeId", d.DisputeID.String()).
		Str("raiser", caller).
		Msg("dispute opened")

	return d, nil
}

// ResolveDispute rules on an open dispute. Only the parameter administrator
// may resolve: PAYEE_WINS disburses the normal split, PAYER_WINS refunds the
// full principal.
func (s *Service) ResolveDispute(ctx context.Context, sessionID, resolver string, outcome dispute.Outcome, reason string) (*dispute.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := dispute.ValidateOutcome(outcome); err != nil {
		return nil, err
	}

	p, err := s.loadParams(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.RequireAdmin(resolver); err != nil {
		return nil, err
	}

	d, err := s.disputeRepo.GetOpenBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dispute: %w", err)
	}
	if d == nil {
		return nil, dispute.ErrNotFound
	}

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusDisputed {
		return nil, session.ErrInvalidStatus
	}

	now := s.clk.Now()
	if err := d.Resolve(outcome, resolver, reason, now); err != nil {
		return nil, err
	}

	err = s.scope.Within(ctx, func(ctx context.Context) error {
		switch outcome {
		case dispute.OutcomePayeeWins:
			if _, _, err := s.disburseWithin(ctx, sess, p.Treasury, now); err != nil {
				return err
			}
		case dispute.OutcomePayerWins:
			if err := s.ledger.Transfer(ctx, ledger.CustodyAccount, sess.Payer, sess.Asset, sess.Amount); err != nil {
				return err
			}
			if err := sess.Cancel(now); err != nil {
				return err
			}
			if err := s.sessionRepo.Replace(ctx, sess); err != nil {
				return err
			}
		}
		return s.disputeRepo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, event.TypeDisputeResolved, sess.SessionID, event.DisputeResolvedPayload{
		SessionID: sess.SessionID,
		Outcome:   string(outcome),
		Resolver:  resolver,
		Reason:    reason,
	})
	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeDispute,
		EntityID:   d.DisputeID.String(),
		Action:     audit.ActionResolve,
		Actor:      resolver,
		Reason:     reason,
		NewValues:  d,
		SessionID:  sess.SessionID,
	})
	s.logger.Info().
		Str("sessionId", sess.SessionID).
		Str("disputeId", d.DisputeID.String()).
		Str("outcome", string(outcome)).
		Str("resolver", resolver).
		Msg("dispute resolved")

	return d, nil
}

// Get returns a session by id, upgraded in memory if stored under an older
// schema version.
func (s *Service) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.loadSession(ctx, sessionID)
}

// List returns sessions matching the filter.
func (s *Service) List(ctx context.Context, filter session.Filter, limit, offset int) ([]*session.Session, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	sessions, err := s.sessionRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, sess := range sessions {
		sess.Migrate()
	}
	return sessions, nil
}

// ListDisputes returns dispute records.
func (s *Service) ListDisputes(ctx context.Context, status *dispute.Status, limit, offset int) ([]*dispute.Dispute, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.disputeRepo.List(ctx, status, limit, offset)
}

// GetDisputes returns the dispute history for one session.
func (s *Service) GetDisputes(ctx context.Context, sessionID string) ([]*dispute.Dispute, error) {
	return s.disputeRepo.ListBySessionID(ctx, sessionID)
}

// disburse runs the split disbursement in its own atomic scope.
func (s *Service) disburse(ctx context.Context, sess *session.Session, treasury string, now time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var payeeShare, fee decimal.Decimal
	err := s.scope.Within(ctx, func(ctx context.Context) error {
		var err error
		payeeShare, fee, err = s.disburseWithin(ctx, sess, treasury, now)
		return err
	})
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	return payeeShare, fee, nil
}

// disburseWithin transfers the split out of custody, completes the session
// and saves it. Must run inside an atomic scope: the fee rate is the one
// frozen at lock time, the treasury is the live one.
func (s *Service) disburseWithin(ctx context.Context, sess *session.Session, treasury string, now time.Time) (decimal.Decimal, decimal.Decimal, error) {
	payeeShare, fee, err := money.Split(sess.Amount, sess.FeeBps)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("failed to compute split: %w", err)
	}
	if payeeShare.Sign() > 0 {
		if err := s.ledger.Transfer(ctx, ledger.CustodyAccount, sess.Payee, sess.Asset, payeeShare); err != nil {
			return decimal.Decimal{}, decimal.Decimal{}, err
		}
	}
	if fee.Sign() > 0 {
		if err := s.ledger.Transfer(ctx, ledger.CustodyAccount, treasury, sess.Asset, fee); err != nil {
			return decimal.Decimal{}, decimal.Decimal{}, err
		}
	}
	if err := sess.Complete(now); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	if err := s.sessionRepo.Replace(ctx, sess); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	return payeeShare, fee, nil
}

// loadSession reads and migrates a session, mapping absence to ErrNotFound.
func (s *Service) loadSession(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, session.ErrNotFound
	}
	sess.Migrate()
	return sess, nil
}

// loadParams reads the parameter singleton, mapping absence to
// ErrNotInitialized.
func (s *Service) loadParams(ctx context.Context) (*params.Parameters, error) {
	p, err := s.paramsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}
	if p == nil {
		return nil, params.ErrNotInitialized
	}
	p.Migrate()
	return p, nil
}

// checkGuardRules evaluates active policy rules against the lock request. A
// matching rule denies the lock; a rule that fails to evaluate is skipped so
// a broken expression cannot block all locking.
func (s *Service) checkGuardRules(ctx context.Context, in LockInput) error {
	rules, err := s.policyRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load guard rules: %w", err)
	}
	lc := policy.LockContext{
		SessionID: in.SessionID,
		Payer:     in.Payer,
		Payee:     in.Payee,
		Asset:     in.Asset,
		Amount:    in.Amount,
		FeeBps:    in.FeeBps,
	}
	for _, r := range rules {
		matched, err := policy.Evaluate(r.Expression, lc)
		if err != nil {
			s.logger.Warn().
				Str("ruleId", r.RuleID.String()).
				Str("rule", r.Name).
				Err(err).
				Msg("guard rule evaluation failed, skipping")
			continue
		}
		if matched {
			return fmt.Errorf("%w: rule %q", policy.ErrViolation, r.Name)
		}
	}
	return nil
}

// emit publishes an event, logging and dropping it on marshal failure.
func (s *Service) emit(ctx context.Context, typ event.Type, sessionID string, payload any) {
	evt, err := event.New(typ, sessionID, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(typ)).Msg("failed to build event")
		return
	}
	s.emitter.Emit(ctx, evt)
}
