package dispute

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a dispute record.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Outcome is the administrative ruling on a resolved dispute.
type Outcome string

const (
	// OutcomePayeeWins disburses the normal split to payee and treasury.
	OutcomePayeeWins Outcome = "PAYEE_WINS"
	// OutcomePayerWins refunds the full principal to the payer.
	OutcomePayerWins Outcome = "PAYER_WINS"
)

var (
	ErrNotFound        = errors.New("dispute not found")
	ErrAlreadyOpen     = errors.New("session already has an open dispute")
	ErrAlreadyResolved = errors.New("dispute already resolved")
	ErrInvalidOutcome  = errors.New("invalid dispute outcome")
)

// Dispute freezes a locked session until an administrator rules on it.
type Dispute struct {
	ID               int64      `json:"id"`
	DisputeID        uuid.UUID  `json:"disputeId"`
	SessionID        string     `json:"sessionId"`
	Raiser           string     `json:"raiser"`
	Reason           string     `json:"reason,omitempty"`
	Status           Status     `json:"status"`
	Outcome          *Outcome   `json:"outcome,omitempty"`
	ResolvedBy       *string    `json:"resolvedBy,omitempty"`
	ResolutionReason *string    `json:"resolutionReason,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	ResolvedAt       *time.Time `json:"resolvedAt,omitempty"`
}

// New builds an open dispute raised by one of the session parties.
func New(sessionID, raiser, reason string, now time.Time) *Dispute {
	return &Dispute{
		DisputeID: uuid.New(),
		SessionID: sessionID,
		Raiser:    raiser,
		Reason:    reason,
		Status:    StatusOpen,
		CreatedAt: now,
	}
}

// ValidateOutcome checks a ruling received from the outside.
func ValidateOutcome(o Outcome) error {
	switch o {
	case OutcomePayeeWins, OutcomePayerWins:
		return nil
	default:
		return ErrInvalidOutcome
	}
}

// Resolve records the administrative ruling. Resolution happens once.
func (d *Dispute) Resolve(outcome Outcome, resolvedBy, reason string, now time.Time) error {
	if d.Status != StatusOpen {
		return ErrAlreadyResolved
	}
	if err := ValidateOutcome(outcome); err != nil {
		return err
	}
	d.Status = StatusResolved
	d.Outcome = &outcome
	d.ResolvedBy = &resolvedBy
	if reason != "" {
		d.ResolutionReason = &reason
	}
	d.ResolvedAt = &now
	return nil
}
