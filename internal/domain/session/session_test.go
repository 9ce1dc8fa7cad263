package session

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSession() *Session {
	return NewLocked("sess-1", "alice", "bob", "USDC", decimal.NewFromInt(1_000_000), 250, t0, 24*time.Hour)
}

func TestNewLocked(t *testing.T) {
	s := newTestSession()

	require.NotNil(t, s)
	assert.Equal(t, CurrentVersion, s.Version)
	assert.Equal(t, "sess-1", s.SessionID)
	assert.Equal(t, "alice", s.Payer)
	assert.Equal(t, "bob", s.Payee)
	assert.Equal(t, "USDC", s.Asset)
	assert.Equal(t, 250, s.FeeBps)
	assert.Equal(t, StatusLocked, s.Status)
	assert.Equal(t, t0, s.CreatedAt)
	assert.Equal(t, t0, s.UpdatedAt)
	assert.Equal(t, t0.Add(24*time.Hour), s.DisputeDeadline)
	assert.False(t, s.PayerApproved)
	assert.False(t, s.PayeeApproved)
	assert.Nil(t, s.ApprovedAt)
}

func TestSession_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{name: "LOCKED -> COMPLETED", from: StatusLocked, to: StatusCompleted, expected: true},
		{name: "LOCKED -> DISPUTED", from: StatusLocked, to: StatusDisputed, expected: true},
		{name: "LOCKED -> CANCELLED", from: StatusLocked, to: StatusCancelled, expected: true},
		{name: "DISPUTED -> COMPLETED", from: StatusDisputed, to: StatusCompleted, expected: true},
		{name: "DISPUTED -> CANCELLED", from: StatusDisputed, to: StatusCancelled, expected: true},
		{name: "DISPUTED -> LOCKED (invalid)", from: StatusDisputed, to: StatusLocked, expected: false},
		{name: "COMPLETED -> LOCKED (invalid)", from: StatusCompleted, to: StatusLocked, expected: false},
		{name: "COMPLETED -> CANCELLED (invalid)", from: StatusCompleted, to: StatusCancelled, expected: false},
		{name: "CANCELLED -> COMPLETED (invalid)", from: StatusCancelled, to: StatusCompleted, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession()
			s.Status = tt.from
			assert.Equal(t, tt.expected, s.CanTransitionTo(tt.to))
		})
	}
}

func TestSession_PartyOf(t *testing.T) {
	s := newTestSession()

	party, ok := s.PartyOf("alice")
	require.True(t, ok)
	assert.Equal(t, PartyPayer, party)

	party, ok = s.PartyOf("bob")
	require.True(t, ok)
	assert.Equal(t, PartyPayee, party)

	_, ok = s.PartyOf("mallory")
	assert.False(t, ok)
}

func TestSession_Approve(t *testing.T) {
	t.Run("payer then payee sets approved at once", func(t *testing.T) {
		s := newTestSession()

		require.NoError(t, s.Approve(PartyPayer, t0.Add(time.Minute)))
		assert.True(t, s.PayerApproved)
		assert.False(t, s.PayeeApproved)
		assert.Nil(t, s.ApprovedAt)
		assert.Equal(t, t0.Add(time.Minute), s.UpdatedAt)

		require.NoError(t, s.Approve(PartyPayee, t0.Add(2*time.Minute)))
		assert.True(t, s.PayeeApproved)
		require.NotNil(t, s.ApprovedAt)
		assert.Equal(t, t0.Add(2*time.Minute), *s.ApprovedAt)
	})

	t.Run("repeat approval rejected and other flag untouched", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.Approve(PartyPayer, t0))

		err := s.Approve(PartyPayer, t0.Add(time.Minute))
		assert.ErrorIs(t, err, ErrAlreadyApproved)
		assert.True(t, s.PayerApproved)
		assert.False(t, s.PayeeApproved)
		assert.Nil(t, s.ApprovedAt)
	})

	t.Run("rejected outside LOCKED", func(t *testing.T) {
		for _, st := range []Status{StatusCompleted, StatusDisputed, StatusCancelled} {
			s := newTestSession()
			s.Status = st
			err := s.Approve(PartyPayer, t0)
			assert.ErrorIs(t, err, ErrInvalidStatus)
			assert.False(t, s.PayerApproved)
		}
	})

	t.Run("unknown party rejected", func(t *testing.T) {
		s := newTestSession()
		err := s.Approve(Party("ARBITER"), t0)
		assert.ErrorIs(t, err, ErrNotAuthorizedParty)
	})
}

func TestSession_CanSettle(t *testing.T) {
	deadline := t0.Add(24 * time.Hour)

	tests := []struct {
		name     string
		payerOK  bool
		payeeOK  bool
		now      time.Time
		expected bool
	}{
		{name: "no approvals before deadline", now: deadline.Add(-time.Second), expected: false},
		{name: "no approvals exactly at deadline", now: deadline, expected: false},
		{name: "no approvals one second past deadline", now: deadline.Add(time.Second), expected: true},
		{name: "one approval before deadline", payerOK: true, now: deadline.Add(-time.Hour), expected: false},
		{name: "one approval at deadline", payeeOK: true, now: deadline, expected: false},
		{name: "both approvals immediately", payerOK: true, payeeOK: true, now: t0, expected: true},
		{name: "both approvals before deadline", payerOK: true, payeeOK: true, now: deadline.Add(-time.Hour), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession()
			s.PayerApproved = tt.payerOK
			s.PayeeApproved = tt.payeeOK
			assert.Equal(t, tt.expected, s.CanSettle(tt.now))
		})
	}
}

func TestSession_Complete(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.Complete(t0.Add(time.Hour)))
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, t0.Add(time.Hour), s.UpdatedAt)

	err := s.Complete(t0.Add(2 * time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_DisputeAndResolve(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.Dispute(t0.Add(time.Hour)))
	assert.Equal(t, StatusDisputed, s.Status)

	err := s.Dispute(t0.Add(2 * time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, s.Cancel(t0.Add(3*time.Hour)))
	assert.Equal(t, StatusCancelled, s.Status)

	err = s.Complete(t0.Add(4 * time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_Migrate(t *testing.T) {
	t.Run("version 1 record normalized", func(t *testing.T) {
		s := newTestSession()
		s.Version = 1
		s.PayerApproved = true
		at := t0
		s.ApprovedAt = &at

		changed := s.Migrate()

		assert.True(t, changed)
		assert.Equal(t, CurrentVersion, s.Version)
		assert.False(t, s.PayerApproved)
		assert.False(t, s.PayeeApproved)
		assert.Nil(t, s.ApprovedAt)
	})

	t.Run("current version untouched", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.Approve(PartyPayer, t0))

		changed := s.Migrate()

		assert.False(t, changed)
		assert.True(t, s.PayerApproved)
	})
}
