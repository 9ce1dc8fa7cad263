package policy

import (
	"errors"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/shopspring/decimal"
)

// LockContext carries the lock request fields a rule expression may
// reference. Amounts are exposed to the expression engine as float64, which
// is precise enough for threshold-style guards.
type LockContext struct {
	SessionID string
	Payer     string
	Payee     string
	Asset     string
	Amount    decimal.Decimal
	FeeBps    int
}

// Evaluate runs the rule expression against a lock context and reports
// whether the rule matched. Empty expressions never match; "true"/"false"
// literals short-circuit.
func Evaluate(expression string, lc LockContext) (bool, error) {
	cond := strings.TrimSpace(expression)
	if cond == "" {
		return false, nil
	}
	switch strings.ToLower(cond) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	expr, err := govaluate.NewEvaluableExpression(cond)
	if err != nil {
		return false, err
	}
	result, err := expr.Evaluate(buildLockParams(lc))
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	default:
		return false, errors.New("rule expression did not evaluate to boolean")
	}
}

func buildLockParams(lc LockContext) map[string]interface{} {
	return map[string]interface{}{
		"session_id": lc.SessionID,
		"payer":      lc.Payer,
		"payee":      lc.Payee,
		"asset":      lc.Asset,
		"amount":     lc.Amount.InexactFloat64(),
		"fee_bps":    float64(lc.FeeBps),
	}
}
