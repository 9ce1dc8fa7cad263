package session

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CurrentVersion is the session schema version written by this engine.
const CurrentVersion = 2

// MaxIDLen bounds client-chosen session identifiers.
const MaxIDLen = 128

// Status represents session status.
type Status string

const (
	StatusLocked    Status = "LOCKED"
	StatusCompleted Status = "COMPLETED"
	StatusDisputed  Status = "DISPUTED"
	StatusCancelled Status = "CANCELLED"
)

// Party identifies which side of the engagement an account holds.
type Party string

const (
	PartyPayer Party = "PAYER"
	PartyPayee Party = "PAYEE"
)

var (
	ErrNotFound                = errors.New("session not found")
	ErrInvalidSessionID        = errors.New("session id must be 1..128 bytes")
	ErrDuplicateID             = errors.New("session id already exists")
	ErrInvalidStatus           = errors.New("invalid session status")
	ErrInvalidTransition       = errors.New("invalid session status transition")
	ErrAlreadyApproved         = errors.New("party already approved")
	ErrNotAuthorizedParty      = errors.New("account is not a party to the session")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrDisputeWindowNotElapsed = errors.New("dispute window has not elapsed")
)

// Session represents one custodial engagement between a payer and a payee.
// The fee rate is captured at lock time and never recomputed from the live
// platform rate; the dispute deadline is computed once and frozen.
type Session struct {
	Version         int             `json:"version"`
	SessionID       string          `json:"sessionId"`
	Payer           string          `json:"payer"`
	Payee           string          `json:"payee"`
	Asset           string          `json:"asset"`
	Amount          decimal.Decimal `json:"amount"`
	FeeBps          int             `json:"feeBps"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	DisputeDeadline time.Time       `json:"disputeDeadline"`
	PayerApproved   bool            `json:"payerApproved"`
	PayeeApproved   bool            `json:"payeeApproved"`
	ApprovedAt      *time.Time      `json:"approvedAt,omitempty"`
}

// NewLocked builds a session entering custody at now.
func NewLocked(sessionID, payer, payee, asset string, amount decimal.Decimal, feeBps int, now time.Time, window time.Duration) *Session {
	return &Session{
		Version:         CurrentVersion,
		SessionID:       sessionID,
		Payer:           payer,
		Payee:           payee,
		Asset:           asset,
		Amount:          amount,
		FeeBps:          feeBps,
		Status:          StatusLocked,
		CreatedAt:       now,
		UpdatedAt:       now,
		DisputeDeadline: now.Add(window),
	}
}

// CanTransitionTo validates session status transition.
func (s *Session) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusLocked:    {StatusCompleted, StatusDisputed, StatusCancelled},
		StatusDisputed:  {StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusCancelled: {},
	}
	allowed := transitions[s.Status]
	for _, st := range allowed {
		if st == target {
			return true
		}
	}
	return false
}

// PartyOf resolves which party the account is, if any.
func (s *Session) PartyOf(account string) (Party, bool) {
	switch account {
	case s.Payer:
		return PartyPayer, true
	case s.Payee:
		return PartyPayee, true
	}
	return "", false
}

// BothApproved reports whether both parties have consented to release.
func (s *Session) BothApproved() bool {
	return s.PayerApproved && s.PayeeApproved
}

// Approve records a party's consent. Each flag can be set at most once;
// ApprovedAt is set exactly once, the first time both flags become true.
func (s *Session) Approve(party Party, now time.Time) error {
	if s.Status != StatusLocked {
		return ErrInvalidStatus
	}
	switch party {
	case PartyPayer:
		if s.PayerApproved {
			return ErrAlreadyApproved
		}
		s.PayerApproved = true
	case PartyPayee:
		if s.PayeeApproved {
			return ErrAlreadyApproved
		}
		s.PayeeApproved = true
	default:
		return ErrNotAuthorizedParty
	}
	s.UpdatedAt = now
	if s.BothApproved() && s.ApprovedAt == nil {
		at := now
		s.ApprovedAt = &at
	}
	return nil
}

// CanSettle reports whether custody may be released at now: either both
// parties consented, or the dispute deadline has strictly passed. A settle
// attempt at exactly the deadline is still refused.
func (s *Session) CanSettle(now time.Time) bool {
	if s.BothApproved() {
		return true
	}
	return now.After(s.DisputeDeadline)
}

// Complete moves the session to its terminal settled state.
func (s *Session) Complete(now time.Time) error {
	if !s.CanTransitionTo(StatusCompleted) {
		return ErrInvalidTransition
	}
	s.Status = StatusCompleted
	s.UpdatedAt = now
	return nil
}

// Dispute freezes the session pending resolution.
func (s *Session) Dispute(now time.Time) error {
	if !s.CanTransitionTo(StatusDisputed) {
		return ErrInvalidTransition
	}
	s.Status = StatusDisputed
	s.UpdatedAt = now
	return nil
}

// Cancel moves the session to its terminal refunded state.
func (s *Session) Cancel(now time.Time) error {
	if !s.CanTransitionTo(StatusCancelled) {
		return ErrInvalidTransition
	}
	s.Status = StatusCancelled
	s.UpdatedAt = now
	return nil
}

// Migrate upgrades a record written under an older schema to the current
// one. Version 1 predates bilateral approval, so consent state resets to
// its zero values. Returns true when the record changed.
func (s *Session) Migrate() bool {
	if s.Version >= CurrentVersion {
		return false
	}
	if s.Version < 2 {
		s.PayerApproved = false
		s.PayeeApproved = false
		s.ApprovedAt = nil
	}
	s.Version = CurrentVersion
	return true
}
