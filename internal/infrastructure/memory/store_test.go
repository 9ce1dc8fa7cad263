package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/authtoken"
	"github.com/settlement-hub/settlement-hub/internal/domain/dispute"
	"github.com/settlement-hub/settlement-hub/internal/domain/ledger"
	"github.com/settlement-hub/settlement-hub/internal/domain/params"
	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
	"github.com/settlement-hub/settlement-hub/internal/domain/session"
	"github.com/settlement-hub/settlement-hub/internal/domain/user"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newLockedSession(id string) *session.Session {
	return session.NewLocked(id, "alice", "bob", "USD", decimal.NewFromInt(100), 250, t0, time.Minute)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("insert if absent enforces uniqueness", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.Sessions().InsertIfAbsent(ctx, newLockedSession("s-1")))

		err := store.Sessions().InsertIfAbsent(ctx, newLockedSession("s-1"))
		assert.ErrorIs(t, err, session.ErrDuplicateID)
	})

	t.Run("get returns nil for missing sessions", func(t *testing.T) {
		store := NewStore()
		got, err := store.Sessions().Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("replace requires an existing record", func(t *testing.T) {
		store := NewStore()
		err := store.Sessions().Replace(ctx, newLockedSession("s-1"))
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("reads are isolated copies", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.Sessions().InsertIfAbsent(ctx, newLockedSession("s-1")))

		got, err := store.Sessions().Get(ctx, "s-1")
		require.NoError(t, err)
		got.Status = session.StatusCompleted
		got.Amount = decimal.NewFromInt(999)

		again, err := store.Sessions().Get(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, session.StatusLocked, again.Status)
		assert.True(t, again.Amount.Equal(decimal.NewFromInt(100)))
	})

	t.Run("list filters and pages newest first", func(t *testing.T) {
		store := NewStore()
		for i, id := range []string{"s-1", "s-2", "s-3"} {
			sess := newLockedSession(id)
			sess.CreatedAt = t0.Add(time.Duration(i) * time.Second)
			require.NoError(t, store.Sessions().InsertIfAbsent(ctx, sess))
		}
		other := newLockedSession("s-4")
		other.Payee = "carol"
		other.CreatedAt = t0.Add(3 * time.Second)
		require.NoError(t, store.Sessions().InsertIfAbsent(ctx, other))

		all, err := store.Sessions().List(ctx, session.Filter{}, 10, 0)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "s-4", all[0].SessionID)
		assert.Equal(t, "s-1", all[3].SessionID)

		carol := "carol"
		byAccount, err := store.Sessions().List(ctx, session.Filter{Account: &carol}, 10, 0)
		require.NoError(t, err)
		require.Len(t, byAccount, 1)
		assert.Equal(t, "s-4", byAccount[0].SessionID)

		paged, err := store.Sessions().List(ctx, session.Filter{}, 2, 3)
		require.NoError(t, err)
		require.Len(t, paged, 1)
		assert.Equal(t, "s-1", paged[0].SessionID)
	})
}

func TestScope(t *testing.T) {
	ctx := context.Background()

	t.Run("rolls back all writes on error", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.Ledger().Credit(ctx, "alice", "USD", decimal.NewFromInt(1000)))

		boom := errors.New("boom")
		err := store.Scope().Within(ctx, func(ctx context.Context) error {
			if err := store.Sessions().InsertIfAbsent(ctx, newLockedSession("s-1")); err != nil {
				return err
			}
			if err := store.Ledger().Transfer(ctx, "alice", ledger.CustodyAccount, "USD", decimal.NewFromInt(100)); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := store.Sessions().Get(ctx, "s-1")
		require.NoError(t, err)
		assert.Nil(t, got)
		bal, err := store.Ledger().Balance(ctx, "alice", "USD")
		require.NoError(t, err)
		assert.True(t, bal.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("commits on success", func(t *testing.T) {
		store := NewStore()
		err := store.Scope().Within(ctx, func(ctx context.Context) error {
			return store.Sessions().InsertIfAbsent(ctx, newLockedSession("s-1"))
		})
		require.NoError(t, err)

		got, err := store.Sessions().Get(ctx, "s-1")
		require.NoError(t, err)
		require.NotNil(t, got)
	})

	t.Run("nested scopes join the outer one", func(t *testing.T) {
		store := NewStore()
		boom := errors.New("boom")
		err := store.Scope().Within(ctx, func(ctx context.Context) error {
			if err := store.Sessions().InsertIfAbsent(ctx, newLockedSession("s-1")); err != nil {
				return err
			}
			return store.Scope().Within(ctx, func(ctx context.Context) error {
				return boom
			})
		})
		require.ErrorIs(t, err, boom)

		got, err := store.Sessions().Get(ctx, "s-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("credit and transfer", func(t *testing.T) {
		store := NewStore()
		l := store.Ledger()
		require.NoError(t, l.Credit(ctx, "alice", "USD", decimal.NewFromInt(500)))
		require.NoError(t, l.Transfer(ctx, "alice", "bob", "USD", decimal.NewFromInt(200)))

		aliceBal, err := l.Balance(ctx, "alice", "USD")
		require.NoError(t, err)
		assert.True(t, aliceBal.Equal(decimal.NewFromInt(300)))
		bobBal, err := l.Balance(ctx, "bob", "USD")
		require.NoError(t, err)
		assert.True(t, bobBal.Equal(decimal.NewFromInt(200)))
	})

	t.Run("transfer rejects overdraft", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.Ledger().Credit(ctx, "alice", "USD", decimal.NewFromInt(100)))

		err := store.Ledger().Transfer(ctx, "alice", "bob", "USD", decimal.NewFromInt(101))
		assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	})

	t.Run("balances lists every asset of one account", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.Ledger().Credit(ctx, "alice", "USD", decimal.NewFromInt(10)))
		require.NoError(t, store.Ledger().Credit(ctx, "alice", "EUR", decimal.NewFromInt(20)))
		require.NoError(t, store.Ledger().Credit(ctx, "bob", "USD", decimal.NewFromInt(30)))

		balances, err := store.Ledger().Balances(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, balances, 2)
		assert.True(t, balances["USD"].Equal(decimal.NewFromInt(10)))
		assert.True(t, balances["EUR"].Equal(decimal.NewFromInt(20)))
	})
}

func TestParamsRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	p, err := params.New("admin", "treasury", 250, time.Minute, t0)
	require.NoError(t, err)

	err = store.Params().Update(ctx, p)
	assert.ErrorIs(t, err, params.ErrNotInitialized)

	require.NoError(t, store.Params().Create(ctx, p))
	err = store.Params().Create(ctx, p)
	assert.ErrorIs(t, err, params.ErrAlreadyInitialized)

	p.FeeBps = 500
	require.NoError(t, store.Params().Update(ctx, p))
	got, err := store.Params().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500, got.FeeBps)
}

func TestDisputeRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	d := dispute.New("s-1", "alice", "reason", t0)
	require.NoError(t, store.Disputes().Create(ctx, d))

	err := store.Disputes().Create(ctx, dispute.New("s-1", "bob", "again", t0))
	assert.ErrorIs(t, err, dispute.ErrAlreadyOpen)

	open, err := store.Disputes().GetOpenBySessionID(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, open)

	require.NoError(t, d.Resolve(dispute.OutcomePayeeWins, "admin", "", t0.Add(time.Minute)))
	require.NoError(t, store.Disputes().Update(ctx, d))

	open, err = store.Disputes().GetOpenBySessionID(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, open)

	// A new dispute may open once the previous one is resolved.
	require.NoError(t, store.Disputes().Create(ctx, dispute.New("s-1", "bob", "second", t0.Add(2*time.Minute))))
	history, err := store.Disputes().ListBySessionID(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestNonceStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Nonces().MarkUsed(ctx, "n-1", t0))
	err := store.Nonces().MarkUsed(ctx, "n-1", t0.Add(time.Second))
	assert.ErrorIs(t, err, releaseauth.ErrNonceUsed)
	require.NoError(t, store.Nonces().MarkUsed(ctx, "n-2", t0))
}

func TestAuditRepositoryQuery(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for i := 0; i < 5; i++ {
		entry := &audit.AuditLog{
			AuditID:    uuid.New(),
			EntityType: audit.EntityTypeSession,
			EntityID:   "s-1",
			Action:     audit.ActionLock,
			Actor:      "alice",
			RiskLevel:  audit.RiskLevelLow,
			CreatedAt:  t0.Add(time.Duration(i) * time.Second),
		}
		if i == 4 {
			entry.Actor = "bob"
			entry.Tags = []string{"voucher"}
		}
		require.NoError(t, store.Audits().Create(ctx, entry))
	}

	t.Run("filters by actor and tags", func(t *testing.T) {
		actor := "bob"
		logs, _, err := store.Audits().Query(ctx, audit.QueryFilter{Actor: &actor}, nil, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)

		logs, _, err = store.Audits().Query(ctx, audit.QueryFilter{Tags: []string{"VOUCHER"}}, nil, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "bob", logs[0].Actor)
	})

	t.Run("paginates newest first with a keyset cursor", func(t *testing.T) {
		first, cursor, err := store.Audits().Query(ctx, audit.QueryFilter{}, nil, 2)
		require.NoError(t, err)
		require.Len(t, first, 2)
		require.NotNil(t, cursor)
		assert.Equal(t, t0.Add(4*time.Second), first[0].CreatedAt)

		second, _, err := store.Audits().Query(ctx, audit.QueryFilter{}, cursor, 2)
		require.NoError(t, err)
		require.Len(t, second, 2)
		assert.True(t, second[0].CreatedAt.Before(first[1].CreatedAt))
	})

	t.Run("counts matches", func(t *testing.T) {
		et := audit.EntityTypeSession
		count, err := store.Audits().Count(ctx, audit.QueryFilter{EntityType: &et})
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})
}

func TestUserRepositoryPreservesPasswordHash(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	u := &user.User{
		UserID:       uuid.New(),
		Username:     "alice",
		PasswordHash: "$2a$10$hash",
		Role:         user.RoleMember,
		Status:       user.StatusActive,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	require.NoError(t, store.Users().Create(ctx, u))

	err := store.Users().Create(ctx, &user.User{UserID: uuid.New(), Username: "alice"})
	assert.Error(t, err)

	got, err := store.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)

	byID, err := store.Users().GetByID(ctx, u.UserID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "$2a$10$hash", byID.PasswordHash)

	count, err := store.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAuthTokenRepositoryPreservesTokenHash(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	tok := &authtoken.Token{
		TokenID:   uuid.New(),
		TokenHash: "deadbeef",
		Account:   "alice",
		CreatedAt: t0,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, store.Tokens().Create(ctx, tok))

	got, err := store.Tokens().GetByTokenHash(ctx, "deadbeef")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "deadbeef", got.TokenHash)
	assert.Equal(t, "alice", got.Account)

	require.NoError(t, store.Tokens().DeleteByTokenHash(ctx, "deadbeef"))
	got, err = store.Tokens().GetByTokenHash(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, got)

	expired := &authtoken.Token{
		TokenID:   uuid.New(),
		TokenHash: "stale",
		Account:   "bob",
		CreatedAt: t0,
		ExpiresAt: t0.Add(time.Minute),
	}
	require.NoError(t, store.Tokens().Create(ctx, expired))
	deleted, err := store.Tokens().DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
