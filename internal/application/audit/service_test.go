package audit

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/infrastructure/memory"
)

var signKey = []byte("audit-test-key")

func TestLogSyncFillsRequestContext(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Audits(), zerolog.Nop(), signKey)

	ctx := audit.WithRequestContext(context.Background(), audit.RequestContext{
		ActorIP:    net.ParseIP("203.0.113.7"),
		ActorRoles: []string{"ADMIN"},
		UserAgent:  "settlement-cli/1.0",
		Method:     "POST",
		Path:       "/v1/ledger/credit",
		TraceID:    "req-42",
	})

	require.NoError(t, svc.LogSync(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeLedger,
		EntityID:   "alice",
		Action:     audit.ActionCredit,
		Actor:      "admin",
	}))

	logs, err := store.Audits().GetByEntityID(context.Background(), audit.EntityTypeLedger, "alice")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	stored := logs[0]
	assert.Equal(t, "203.0.113.7", stored.ActorIP.String())
	assert.Equal(t, []string{"ADMIN"}, stored.ActorRoles)
	assert.Equal(t, "settlement-cli/1.0", stored.UserAgent)
	assert.Equal(t, "POST", stored.RequestMethod)
	assert.Equal(t, "/v1/ledger/credit", stored.RequestPath)
	assert.Equal(t, "req-42", stored.TraceID)

	// The signature covers the request attributes.
	ok, err := audit.VerifyAuditLogSignature(stored, signKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogSyncKeepsExplicitEntryFields(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Audits(), zerolog.Nop(), signKey)

	ctx := audit.WithRequestContext(context.Background(), audit.RequestContext{
		ActorRoles: []string{"MEMBER"},
		UserAgent:  "browser/99",
		TraceID:    "req-surrounding",
	})

	require.NoError(t, svc.LogSync(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeUser,
		EntityID:   "u-1",
		Action:     audit.ActionLogin,
		Actor:      "alice",
		ActorRoles: []string{"ADMIN"},
		UserAgent:  "explicit-agent",
		TraceID:    "req-explicit",
	}))

	logs, err := store.Audits().GetByEntityID(context.Background(), audit.EntityTypeUser, "u-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"ADMIN"}, logs[0].ActorRoles)
	assert.Equal(t, "explicit-agent", logs[0].UserAgent)
	assert.Equal(t, "req-explicit", logs[0].TraceID)
}

func TestLogCapturesContextBeforeDetaching(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Audits(), zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	ctx = audit.WithRequestContext(ctx, audit.RequestContext{
		Method:  "DELETE",
		Path:    "/v1/policy/rules/r-1",
		TraceID: "req-7",
	})
	svc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypePolicy,
		EntityID:   "r-1",
		Action:     audit.ActionDelete,
		Actor:      "admin",
	})
	cancel()

	assert.Eventually(t, func() bool {
		logs, err := store.Audits().GetByEntityID(context.Background(), audit.EntityTypePolicy, "r-1")
		if err != nil || len(logs) != 1 {
			return false
		}
		return logs[0].RequestMethod == "DELETE" &&
			logs[0].RequestPath == "/v1/policy/rules/r-1" &&
			logs[0].TraceID == "req-7"
	}, time.Second, 10*time.Millisecond)
}
