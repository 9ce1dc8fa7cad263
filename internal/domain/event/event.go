package event

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_emitter.go -package=mocks . Emitter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type identifies the kind of settlement event.
type Type string

const (
	TypeFundsLocked      Type = "FUNDS_LOCKED"
	TypeSessionApproved  Type = "SESSION_APPROVED"
	TypeSessionCompleted Type = "SESSION_COMPLETED"
	TypeSessionCancelled Type = "SESSION_CANCELLED"
	TypeDisputeOpened    Type = "DISPUTE_OPENED"
	TypeDisputeResolved  Type = "DISPUTE_RESOLVED"
	TypeParamChanged     Type = "PARAM_CHANGED"
)

// Event is a structured notification for off-engine observers. Events are
// advisory: settlement correctness never depends on delivery.
type Event struct {
	EventID   uuid.UUID       `json:"eventId"`
	Type      Type            `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// New builds an event with the payload marshaled in place. sessionID may be
// empty for events not tied to a single session.
func New(typ Type, sessionID string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		EventID:   uuid.New(),
		Type:      typ,
		SessionID: sessionID,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// FundsLockedPayload announces principal moved into custody.
type FundsLockedPayload struct {
	SessionID string          `json:"sessionId"`
	Payer     string          `json:"payer"`
	Payee     string          `json:"payee"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
}

// SessionApprovedPayload announces one party's release consent.
type SessionApprovedPayload struct {
	SessionID    string `json:"sessionId"`
	Approver     string `json:"approver"`
	BothApproved bool   `json:"bothApproved"`
}

// SessionCompletedPayload announces a settled session and its disbursement.
type SessionCompletedPayload struct {
	SessionID  string          `json:"sessionId"`
	Payee      string          `json:"payee"`
	PayeeShare decimal.Decimal `json:"payeeShare"`
	Fee        decimal.Decimal `json:"fee"`
	Treasury   string          `json:"treasury"`
}

// SessionCancelledPayload announces a refunded session.
type SessionCancelledPayload struct {
	SessionID string          `json:"sessionId"`
	Payer     string          `json:"payer"`
	Refund    decimal.Decimal `json:"refund"`
	Via       string          `json:"via"`
}

// DisputeOpenedPayload announces a session frozen by a party.
type DisputeOpenedPayload struct {
	SessionID string `json:"sessionId"`
	Raiser    string `json:"raiser"`
	Reason    string `json:"reason,omitempty"`
}

// DisputeResolvedPayload announces an administrative dispute outcome.
type DisputeResolvedPayload struct {
	SessionID string `json:"sessionId"`
	Outcome   string `json:"outcome"`
	Resolver  string `json:"resolver"`
	Reason    string `json:"reason,omitempty"`
}

// ParamChangedPayload announces an administrator configuration change.
type ParamChangedPayload struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
	Actor string `json:"actor"`
}

// Emitter delivers events to external observers. Implementations must not
// block the calling operation and must swallow their own delivery failures.
type Emitter interface {
	Emit(ctx context.Context, evt *Event)
}
