package ledger

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_ledger.go -package=mocks . Ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// CustodyAccount holds locked principal between lock and settlement. The
// prefix keeps it out of the account namespace users can register in.
const CustodyAccount = "custody:vault"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransfer            = errors.New("transfer failed")
)

// Ledger moves fungible assets between named accounts. Implementations must
// make Transfer atomic with the caller's other storage writes inside one
// atomic scope, so a failed settlement never leaves funds half-moved.
type Ledger interface {
	// Balance returns the current holdings of account in asset. Unknown
	// accounts hold zero.
	Balance(ctx context.Context, account, asset string) (decimal.Decimal, error)
	// Credit mints amount of asset into account. Administrative funding
	// only; amount must be a positive integer.
	Credit(ctx context.Context, account, asset string, amount decimal.Decimal) error
	// Transfer moves amount of asset from one account to another, failing
	// with ErrInsufficientBalance when from holds less than amount.
	Transfer(ctx context.Context, from, to, asset string, amount decimal.Decimal) error
}

// BalanceLister enumerates every asset an account holds. Both ledger
// backends implement it for the read API.
type BalanceLister interface {
	Balances(ctx context.Context, account string) (map[string]decimal.Decimal, error)
}
