package settlement

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/clock"
	"github.com/settlement-hub/settlement-hub/internal/domain/dispute"
	"github.com/settlement-hub/settlement-hub/internal/domain/event"
	"github.com/settlement-hub/settlement-hub/internal/domain/ledger"
	"github.com/settlement-hub/settlement-hub/internal/domain/params"
	"github.com/settlement-hub/settlement-hub/internal/domain/policy"
	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
	"github.com/settlement-hub/settlement-hub/internal/domain/session"
	"github.com/settlement-hub/settlement-hub/internal/infrastructure/memory"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type captureEmitter struct {
	mu     sync.Mutex
	events []*event.Event
}

func (c *captureEmitter) Emit(_ context.Context, evt *event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *captureEmitter) types() []event.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Type, len(c.events))
	for i, evt := range c.events {
		out[i] = evt.Type
	}
	return out
}

type testEnv struct {
	store   *memory.Store
	clk     *clock.Manual
	emitter *captureEmitter
	svc     *Service
}

// newTestEnv wires a settlement service against the in-memory store with
// parameters admin/treasury/250bps/60s window and alice funded 10_000_000 USD.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	clk := &clock.Manual{T: t0}
	emitter := &captureEmitter{}
	auditSvc := appAudit.NewService(store.Audits(), zerolog.Nop(), []byte("test-signing-key"))

	p, err := params.New("admin", "treasury", 250, 60*time.Second, t0)
	require.NoError(t, err)
	require.NoError(t, store.Params().Create(ctx, p))
	require.NoError(t, store.Ledger().Credit(ctx, "alice", "USD", decimal.NewFromInt(10_000_000)))

	svc := NewService(
		store.Sessions(), store.Params(), store.Disputes(), store.Rules(),
		store.Signers(), store.Nonces(), store.Ledger(), store.Scope(),
		clk, emitter, auditSvc, zerolog.Nop(),
	)
	return &testEnv{store: store, clk: clk, emitter: emitter, svc: svc}
}

func (e *testEnv) balance(t *testing.T, account string) decimal.Decimal {
	t.Helper()
	bal, err := e.store.Ledger().Balance(context.Background(), account, "USD")
	require.NoError(t, err)
	return bal
}

func (e *testEnv) lock(t *testing.T, sessionID string, amount int64, feeBps int) *session.Session {
	t.Helper()
	sess, err := e.svc.Lock(context.Background(), LockInput{
		SessionID: sessionID,
		Payer:     "alice",
		Payee:     "bob",
		Asset:     "USD",
		Amount:    decimal.NewFromInt(amount),
		FeeBps:    feeBps,
		Caller:    "alice",
	})
	require.NoError(t, err)
	return sess
}

func TestLock(t *testing.T) {
	ctx := context.Background()

	t.Run("moves principal into custody", func(t *testing.T) {
		env := newTestEnv(t)

		sess := env.lock(t, "s-1", 1_000_000, 250)

		assert.Equal(t, session.StatusLocked, sess.Status)
		assert.Equal(t, session.CurrentVersion, sess.Version)
		assert.Equal(t, t0.Add(60*time.Second), sess.DisputeDeadline)
		assert.True(t, env.balance(t, "alice").Equal(decimal.NewFromInt(9_000_000)))
		assert.True(t, env.balance(t, ledger.CustodyAccount).Equal(decimal.NewFromInt(1_000_000)))
		assert.Equal(t, []event.Type{event.TypeFundsLocked}, env.emitter.types())
	})

	t.Run("duplicate session id fails and moves nothing", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1_000_000, 250)

		_, err := env.svc.Lock(ctx, LockInput{
			SessionID: "s-1",
			Payer:     "alice",
			Payee:     "carol",
			Asset:     "USD",
			Amount:    decimal.NewFromInt(500),
			FeeBps:    100,
			Caller:    "alice",
		})

		assert.ErrorIs(t, err, session.ErrDuplicateID)
		assert.True(t, env.balance(t, ledger.CustodyAccount).Equal(decimal.NewFromInt(1_000_000)))
	})

	t.Run("insufficient balance rolls back the session insert", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Lock(ctx, LockInput{
			SessionID: "s-poor",
			Payer:     "alice",
			Payee:     "bob",
			Asset:     "USD",
			Amount:    decimal.NewFromInt(10_000_001),
			FeeBps:    250,
			Caller:    "alice",
		})
		require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

		got, err := env.store.Sessions().Get(ctx, "s-poor")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.True(t, env.balance(t, "alice").Equal(decimal.NewFromInt(10_000_000)))
	})

	t.Run("caller must be the payer", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Lock(ctx, LockInput{
			SessionID: "s-2",
			Payer:     "alice",
			Payee:     "bob",
			Asset:     "USD",
			Amount:    decimal.NewFromInt(100),
			FeeBps:    250,
			Caller:    "bob",
		})

		assert.ErrorIs(t, err, session.ErrNotAuthorizedParty)
	})

	t.Run("rejects bad amounts and self-dealing", func(t *testing.T) {
		env := newTestEnv(t)

		for name, in := range map[string]LockInput{
			"zero amount":     {SessionID: "s-z", Payer: "alice", Payee: "bob", Asset: "USD", Amount: decimal.Zero, FeeBps: 250, Caller: "alice"},
			"negative amount": {SessionID: "s-n", Payer: "alice", Payee: "bob", Asset: "USD", Amount: decimal.NewFromInt(-5), FeeBps: 250, Caller: "alice"},
			"fractional":      {SessionID: "s-f", Payer: "alice", Payee: "bob", Asset: "USD", Amount: decimal.NewFromFloat(1.5), FeeBps: 250, Caller: "alice"},
			"payer is payee":  {SessionID: "s-s", Payer: "alice", Payee: "alice", Asset: "USD", Amount: decimal.NewFromInt(100), FeeBps: 250, Caller: "alice"},
		} {
			_, err := env.svc.Lock(ctx, in)
			assert.ErrorIs(t, err, session.ErrInvalidAmount, name)
		}
	})

	t.Run("rejects blank and oversized session ids", func(t *testing.T) {
		env := newTestEnv(t)

		for name, id := range map[string]string{
			"blank":     "   ",
			"oversized": strings.Repeat("x", session.MaxIDLen+1),
		} {
			_, err := env.svc.Lock(ctx, LockInput{
				SessionID: id,
				Payer:     "alice",
				Payee:     "bob",
				Asset:     "USD",
				Amount:    decimal.NewFromInt(1_000_000),
				FeeBps:    250,
				Caller:    "alice",
			})
			assert.ErrorIs(t, err, session.ErrInvalidSessionID, name)
		}

		// Nothing moved into custody.
		bal, err := env.store.Ledger().Balance(ctx, "alice", "USD")
		require.NoError(t, err)
		assert.True(t, bal.Equal(decimal.NewFromInt(10_000_000)))

		// A maximum-length id is accepted.
		env.lock(t, strings.Repeat("x", session.MaxIDLen), 1_000_000, 250)
	})

	t.Run("guard rule denies the lock", func(t *testing.T) {
		env := newTestEnv(t)
		creator := "admin"
		rule, err := policy.NewRule("large-lock", "deny big locks", "amount > 500000", &creator)
		require.NoError(t, err)
		require.NoError(t, env.store.Rules().Create(ctx, rule))

		_, err = env.svc.Lock(ctx, LockInput{
			SessionID: "s-big",
			Payer:     "alice",
			Payee:     "bob",
			Asset:     "USD",
			Amount:    decimal.NewFromInt(1_000_000),
			FeeBps:    250,
			Caller:    "alice",
		})
		assert.ErrorIs(t, err, policy.ErrViolation)

		// Below the threshold the same rule lets the lock through.
		env.lock(t, "s-small", 500_000, 250)
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("is idempotent per party", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1000, 250)

		sess, err := env.svc.Approve(ctx, "s-1", "alice")
		require.NoError(t, err)
		assert.True(t, sess.PayerApproved)
		assert.False(t, sess.PayeeApproved)

		_, err = env.svc.Approve(ctx, "s-1", "alice")
		assert.ErrorIs(t, err, session.ErrAlreadyApproved)

		got, err := env.svc.Get(ctx, "s-1")
		require.NoError(t, err)
		assert.True(t, got.PayerApproved)
		assert.False(t, got.PayeeApproved)
		assert.Nil(t, got.ApprovedAt)
	})

	t.Run("sets ApprovedAt when both consent", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1000, 250)

		_, err := env.svc.Approve(ctx, "s-1", "alice")
		require.NoError(t, err)
		env.clk.Advance(5 * time.Second)
		sess, err := env.svc.Approve(ctx, "s-1", "bob")
		require.NoError(t, err)

		assert.True(t, sess.BothApproved())
		require.NotNil(t, sess.ApprovedAt)
		assert.Equal(t, t0.Add(5*time.Second), *sess.ApprovedAt)
	})

	t.Run("rejects non-parties and terminal sessions", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1000, 250)

		_, err := env.svc.Approve(ctx, "s-1", "mallory")
		assert.ErrorIs(t, err, session.ErrNotAuthorizedParty)

		_, err = env.svc.Approve(ctx, "missing", "alice")
		assert.ErrorIs(t, err, session.ErrNotFound)

		env.clk.Advance(61 * time.Second)
		_, err = env.svc.Settle(ctx, "s-1", "bob")
		require.NoError(t, err)
		_, err = env.svc.Approve(ctx, "s-1", "alice")
		assert.ErrorIs(t, err, session.ErrInvalidStatus)
	})
}

func TestSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("consent path splits principal between payee and treasury", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1_000_000, 250)

		_, err := env.svc.Approve(ctx, "s-1", "alice")
		require.NoError(t, err)
		_, err = env.svc.Approve(ctx, "s-1", "bob")
		require.NoError(t, err)

		// Well before the deadline: consent alone releases custody.
		sess, err := env.svc.Settle(ctx, "s-1", "bob")
		require.NoError(t, err)

		assert.Equal(t, session.StatusCompleted, sess.Status)
		assert.True(t, env.balance(t, "bob").Equal(decimal.NewFromInt(975_000)))
		assert.True(t, env.balance(t, "treasury").Equal(decimal.NewFromInt(25_000)))
		assert.True(t, env.balance(t, ledger.CustodyAccount).IsZero())
		assert.Equal(t,
			[]event.Type{event.TypeFundsLocked, event.TypeSessionApproved, event.TypeSessionApproved, event.TypeSessionCompleted},
			env.emitter.types())
	})

	t.Run("single approval does not bypass the window", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1000, 250)
		_, err := env.svc.Approve(ctx, "s-1", "alice")
		require.NoError(t, err)

		_, err = env.svc.Settle(ctx, "s-1", "alice")
		assert.ErrorIs(t, err, session.ErrDisputeWindowNotElapsed)
	})

	t.Run("deadline comparison is strict", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1000, 250)

		env.clk.Advance(59 * time.Second)
		_, err := env.svc.Settle(ctx, "s-1", "bob")
		assert.ErrorIs(t, err, session.ErrDisputeWindowNotElapsed)

		// Exactly at the deadline is still inside the window.
		env.clk.Advance(1 * time.Second)
		_, err = env.svc.Settle(ctx, "s-1", "bob")
		assert.ErrorIs(t, err, session.ErrDisputeWindowNotElapsed)

		env.clk.Advance(1 * time.Second)
		sess, err := env.svc.Settle(ctx, "s-1", "bob")
		require.NoError(t, err)
		assert.Equal(t, session.StatusCompleted, sess.Status)
	})

	t.Run("fee splits match the rounding rules", func(t *testing.T) {
		for _, tc := range []struct {
			amount, payee, fee int64
			bps                int
		}{
			{amount: 1_000_000, bps: 250, payee: 975_000, fee: 25_000},
			{amount: 100, bps: 3333, payee: 66, fee: 34},
			{amount: 1, bps: 0, payee: 1, fee: 0},
			{amount: 999, bps: 1, payee: 998, fee: 1},
		} {
			env := newTestEnv(t)
			p, err := env.store.Params().Get(ctx)
			require.NoError(t, err)
			p.FeeBps = tc.bps
			require.NoError(t, env.store.Params().Update(ctx, p))

			env.lock(t, "s-1", tc.amount, tc.bps)
			env.clk.Advance(61 * time.Second)
			_, err = env.svc.Settle(ctx, "s-1", "bob")
			require.NoError(t, err)

			assert.True(t, env.balance(t, "bob").Equal(decimal.NewFromInt(tc.payee)),
				"amount=%d bps=%d payee=%s", tc.amount, tc.bps, env.balance(t, "bob"))
			assert.True(t, env.balance(t, "treasury").Equal(decimal.NewFromInt(tc.fee)),
				"amount=%d bps=%d fee=%s", tc.amount, tc.bps, env.balance(t, "treasury"))
			assert.True(t, env.balance(t, ledger.CustodyAccount).IsZero())
		}
	})

	t.Run("fee rate is frozen at lock, treasury read live", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1_000_000, 250)

		p, err := env.store.Params().Get(ctx)
		require.NoError(t, err)
		p.FeeBps = 1000
		p.Treasury = "treasury-2"
		require.NoError(t, env.store.Params().Update(ctx, p))

		env.clk.Advance(61 * time.Second)
		_, err = env.svc.Settle(ctx, "s-1", "bob")
		require.NoError(t, err)

		// 250 bps from lock time, paid to the current treasury account.
		assert.True(t, env.balance(t, "bob").Equal(decimal.NewFromInt(975_000)))
		assert.True(t, env.balance(t, "treasury-2").Equal(decimal.NewFromInt(25_000)))
		assert.True(t, env.balance(t, "treasury").IsZero())
	})

	t.Run("completed sessions are immutable", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1000, 250)
		env.clk.Advance(61 * time.Second)
		_, err := env.svc.Settle(ctx, "s-1", "bob")
		require.NoError(t, err)

		_, err = env.svc.Settle(ctx, "s-1", "bob")
		assert.ErrorIs(t, err, session.ErrInvalidStatus)
		_, err = env.svc.OpenDispute(ctx, "s-1", "alice", "late")
		assert.ErrorIs(t, err, session.ErrInvalidStatus)
	})
}

func TestDisputes(t *testing.T) {
	ctx := context.Background()

	t.Run("open freezes the session", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1_000_000, 250)

		d, err := env.svc.OpenDispute(ctx, "s-1", "alice", "goods not delivered")
		require.NoError(t, err)
		assert.Equal(t, dispute.StatusOpen, d.Status)
		assert.Equal(t, "alice", d.Raiser)

		_, err = env.svc.Approve(ctx, "s-1", "bob")
		assert.ErrorIs(t, err, session.ErrInvalidStatus)

		env.clk.Advance(61 * time.Second)
		_, err = env.svc.Settle(ctx, "s-1", "bob")
		assert.ErrorIs(t, err, session.ErrInvalidStatus)

		// Custody untouched while frozen.
		assert.True(t, env.balance(t, ledger.CustodyAccount).Equal(decimal.NewFromInt(1_000_000)))
	})

	t.Run("only parties may raise", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1000, 250)

		_, err := env.svc.OpenDispute(ctx, "s-1", "mallory", "nope")
		assert.ErrorIs(t, err, session.ErrNotAuthorizedParty)
	})

	t.Run("payee wins disburses the normal split", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1_000_000, 250)
		_, err := env.svc.OpenDispute(ctx, "s-1", "alice", "quality")
		require.NoError(t, err)

		d, err := env.svc.ResolveDispute(ctx, "s-1", "admin", dispute.OutcomePayeeWins, "evidence favors payee")
		require.NoError(t, err)

		assert.Equal(t, dispute.StatusResolved, d.Status)
		require.NotNil(t, d.Outcome)
		assert.Equal(t, dispute.OutcomePayeeWins, *d.Outcome)
		assert.True(t, env.balance(t, "bob").Equal(decimal.NewFromInt(975_000)))
		assert.True(t, env.balance(t, "treasury").Equal(decimal.NewFromInt(25_000)))
		assert.True(t, env.balance(t, ledger.CustodyAccount).IsZero())

		sess, err := env.svc.Get(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, session.StatusCompleted, sess.Status)
	})

	t.Run("payer wins refunds the full principal", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1_000_000, 250)
		_, err := env.svc.OpenDispute(ctx, "s-1", "bob", "payer never confirmed")
		require.NoError(t, err)

		_, err = env.svc.ResolveDispute(ctx, "s-1", "admin", dispute.OutcomePayerWins, "refund")
		require.NoError(t, err)

		assert.True(t, env.balance(t, "alice").Equal(decimal.NewFromInt(10_000_000)))
		assert.True(t, env.balance(t, "bob").IsZero())
		assert.True(t, env.balance(t, "treasury").IsZero())
		assert.True(t, env.balance(t, ledger.CustodyAccount).IsZero())

		sess, err := env.svc.Get(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, session.StatusCancelled, sess.Status)
	})

	t.Run("only the administrator resolves", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1000, 250)
		_, err := env.svc.OpenDispute(ctx, "s-1", "alice", "r")
		require.NoError(t, err)

		_, err = env.svc.ResolveDispute(ctx, "s-1", "bob", dispute.OutcomePayeeWins, "")
		assert.ErrorIs(t, err, params.ErrUnauthorized)

		_, err = env.svc.ResolveDispute(ctx, "s-1", "admin", dispute.Outcome("SPLIT"), "")
		assert.ErrorIs(t, err, dispute.ErrInvalidOutcome)

		_, err = env.svc.ResolveDispute(ctx, "s-2", "admin", dispute.OutcomePayeeWins, "")
		assert.ErrorIs(t, err, dispute.ErrNotFound)
	})

	t.Run("session dispute history survives resolution", func(t *testing.T) {
		env := newTestEnv(t)
		env.lock(t, "s-1", 1000, 250)
		_, err := env.svc.OpenDispute(ctx, "s-1", "alice", "first")
		require.NoError(t, err)
		_, err = env.svc.ResolveDispute(ctx, "s-1", "admin", dispute.OutcomePayeeWins, "")
		require.NoError(t, err)

		ds, err := env.svc.GetDisputes(ctx, "s-1")
		require.NoError(t, err)
		require.Len(t, ds, 1)
		assert.Equal(t, dispute.StatusResolved, ds[0].Status)
	})
}

func signedVoucher(t *testing.T, sessionID string, action releaseauth.Action, key ed25519.PrivateKey, signerID string, now time.Time) releaseauth.Voucher {
	t.Helper()
	v := releaseauth.Voucher{
		VoucherID: uuid.NewString(),
		SessionID: sessionID,
		Action:    action,
		Nonce:     uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(15 * time.Minute),
		SignerID:  signerID,
	}
	require.NoError(t, v.Sign(key))
	return v
}

func TestSettleWithVoucher(t *testing.T) {
	ctx := context.Background()

	registerSigner := func(t *testing.T, env *testEnv) (ed25519.PrivateKey, string) {
		t.Helper()
		pub, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		sg, err := releaseauth.NewSigner("ops-1", base64.StdEncoding.EncodeToString(pub), "ops signer", "admin", t0)
		require.NoError(t, err)
		require.NoError(t, env.store.Signers().Create(ctx, sg))
		return priv, sg.SignerID
	}

	t.Run("settle action bypasses consent and deadline", func(t *testing.T) {
		env := newTestEnv(t)
		priv, signerID := registerSigner(t, env)
		env.lock(t, "s-1", 1_000_000, 250)

		v := signedVoucher(t, "s-1", releaseauth.ActionSettle, priv, signerID, t0)
		sess, err := env.svc.SettleWithVoucher(ctx, "s-1", v, "ops")
		require.NoError(t, err)

		assert.Equal(t, session.StatusCompleted, sess.Status)
		assert.True(t, env.balance(t, "bob").Equal(decimal.NewFromInt(975_000)))
		assert.True(t, env.balance(t, "treasury").Equal(decimal.NewFromInt(25_000)))
	})

	t.Run("cancel action refunds the payer", func(t *testing.T) {
		env := newTestEnv(t)
		priv, signerID := registerSigner(t, env)
		env.lock(t, "s-1", 1_000_000, 250)

		v := signedVoucher(t, "s-1", releaseauth.ActionCancel, priv, signerID, t0)
		sess, err := env.svc.SettleWithVoucher(ctx, "s-1", v, "ops")
		require.NoError(t, err)

		assert.Equal(t, session.StatusCancelled, sess.Status)
		assert.True(t, env.balance(t, "alice").Equal(decimal.NewFromInt(10_000_000)))
		assert.True(t, env.balance(t, ledger.CustodyAccount).IsZero())
	})

	t.Run("nonce is consumed exactly once", func(t *testing.T) {
		env := newTestEnv(t)
		priv, signerID := registerSigner(t, env)
		env.lock(t, "s-1", 1000, 250)
		env.lock(t, "s-2", 1000, 250)

		v := signedVoucher(t, "s-1", releaseauth.ActionSettle, priv, signerID, t0)
		_, err := env.svc.SettleWithVoucher(ctx, "s-1", v, "ops")
		require.NoError(t, err)

		// Same nonce on a fresh session and voucher id.
		replay := v
		replay.VoucherID = uuid.NewString()
		replay.SessionID = "s-2"
		require.NoError(t, replay.Sign(priv))
		_, err = env.svc.SettleWithVoucher(ctx, "s-2", replay, "ops")
		assert.ErrorIs(t, err, releaseauth.ErrNonceUsed)
	})

	t.Run("session mismatch and tampering are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		priv, signerID := registerSigner(t, env)
		env.lock(t, "s-1", 1000, 250)
		env.lock(t, "s-2", 1000, 250)

		v := signedVoucher(t, "s-2", releaseauth.ActionSettle, priv, signerID, t0)
		_, err := env.svc.SettleWithVoucher(ctx, "s-1", v, "ops")
		assert.Error(t, err)

		tampered := signedVoucher(t, "s-1", releaseauth.ActionSettle, priv, signerID, t0)
		tampered.Action = releaseauth.ActionCancel
		_, err = env.svc.SettleWithVoucher(ctx, "s-1", tampered, "ops")
		assert.Error(t, err)
	})

	t.Run("expired voucher is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		priv, signerID := registerSigner(t, env)
		env.lock(t, "s-1", 1000, 250)

		v := signedVoucher(t, "s-1", releaseauth.ActionSettle, priv, signerID, t0)
		env.clk.Advance(16 * time.Minute)
		_, err := env.svc.SettleWithVoucher(ctx, "s-1", v, "ops")
		assert.ErrorIs(t, err, releaseauth.ErrVoucherExpired)
	})

	t.Run("unknown and revoked signers are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		priv, signerID := registerSigner(t, env)
		env.lock(t, "s-1", 1000, 250)

		ghost := signedVoucher(t, "s-1", releaseauth.ActionSettle, priv, "ghost", t0)
		_, err := env.svc.SettleWithVoucher(ctx, "s-1", ghost, "ops")
		assert.ErrorIs(t, err, releaseauth.ErrSignerNotFound)

		require.NoError(t, env.store.Signers().Revoke(ctx, signerID, t0))
		v := signedVoucher(t, "s-1", releaseauth.ActionSettle, priv, signerID, t0)
		_, err = env.svc.SettleWithVoucher(ctx, "s-1", v, "ops")
		assert.ErrorIs(t, err, releaseauth.ErrSignerRevoked)
	})

	t.Run("voucher key must match the registration", func(t *testing.T) {
		env := newTestEnv(t)
		_, signerID := registerSigner(t, env)
		env.lock(t, "s-1", 1000, 250)

		_, otherPriv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		v := signedVoucher(t, "s-1", releaseauth.ActionSettle, otherPriv, signerID, t0)
		_, err = env.svc.SettleWithVoucher(ctx, "s-1", v, "ops")
		assert.ErrorIs(t, err, releaseauth.ErrSignerMismatch)
	})
}

func TestGetMigratesLegacySessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	legacy := session.NewLocked("s-old", "alice", "bob", "USD", decimal.NewFromInt(500), 100, t0, 60*time.Second)
	legacy.Version = 1
	legacy.PayerApproved = true
	legacy.PayeeApproved = true
	require.NoError(t, env.store.Sessions().InsertIfAbsent(ctx, legacy))

	sess, err := env.svc.Get(ctx, "s-old")
	require.NoError(t, err)

	// Version 1 records predate per-party consent tracking; their flags are
	// not trustworthy and reset on upgrade.
	assert.Equal(t, session.CurrentVersion, sess.Version)
	assert.False(t, sess.PayerApproved)
	assert.False(t, sess.PayeeApproved)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.lock(t, "s-1", 100, 250)
	env.clk.Advance(time.Second)
	env.lock(t, "s-2", 200, 250)
	env.clk.Advance(time.Second)
	_, err := env.svc.Lock(ctx, LockInput{
		SessionID: "s-3", Payer: "alice", Payee: "carol", Asset: "USD",
		Amount: decimal.NewFromInt(300), FeeBps: 250, Caller: "alice",
	})
	require.NoError(t, err)

	all, err := env.svc.List(ctx, session.Filter{}, 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "s-3", all[0].SessionID)

	carol := "carol"
	byAccount, err := env.svc.List(ctx, session.Filter{Account: &carol}, 50, 0)
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, "s-3", byAccount[0].SessionID)

	paged, err := env.svc.List(ctx, session.Filter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "s-1", paged[0].SessionID)
}
