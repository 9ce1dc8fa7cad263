package policy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockCtx() LockContext {
	return LockContext{
		SessionID: "sess-1",
		Payer:     "alice",
		Payee:     "bob",
		Asset:     "USDC",
		Amount:    decimal.NewFromInt(1_000_000),
		FeeBps:    250,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{name: "empty expression never matches", expression: "", expected: false},
		{name: "true literal", expression: "true", expected: true},
		{name: "false literal", expression: "false", expected: false},
		{name: "amount threshold matched", expression: "amount > 500000", expected: true},
		{name: "amount threshold not matched", expression: "amount > 2000000", expected: false},
		{name: "fee rate guard", expression: "fee_bps >= 250", expected: true},
		{name: "asset allowlist", expression: "asset != 'USDC' && asset != 'EURC'", expected: false},
		{name: "self dealing guard", expression: "payer == payee", expected: false},
		{name: "combined guard", expression: "amount >= 1000000 && fee_bps < 300", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, err := Evaluate(tt.expression, lockCtx())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, matched)
		})
	}

	t.Run("syntax error", func(t *testing.T) {
		_, err := Evaluate("amount >>> 10", lockCtx())
		assert.Error(t, err)
	})

	t.Run("non boolean result", func(t *testing.T) {
		_, err := Evaluate("amount + 1", lockCtx())
		assert.Error(t, err)
	})
}

func TestNewRule(t *testing.T) {
	by := "admin"

	t.Run("valid", func(t *testing.T) {
		r, err := NewRule("large-transfers", "deny locks above 1B", "amount > 1000000000", &by)
		require.NoError(t, err)
		assert.Equal(t, RuleStatusActive, r.Status)
		assert.NotEqual(t, "", r.RuleID.String())
		assert.Equal(t, &by, r.CreatedBy)
	})

	t.Run("empty expression rejected", func(t *testing.T) {
		_, err := NewRule("bad", "", "   ", &by)
		assert.ErrorIs(t, err, ErrInvalidExpression)
	})

	t.Run("unparsable expression rejected", func(t *testing.T) {
		_, err := NewRule("bad", "", "amount >>>> 10", &by)
		assert.ErrorIs(t, err, ErrInvalidExpression)
	})
}

func TestValidateStatus(t *testing.T) {
	assert.NoError(t, ValidateStatus(RuleStatusActive))
	assert.NoError(t, ValidateStatus(RuleStatusInactive))
	assert.NoError(t, ValidateStatus(RuleStatusArchived))
	assert.ErrorIs(t, ValidateStatus(RuleStatus("BOGUS")), ErrInvalidStatus)
}
