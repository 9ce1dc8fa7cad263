package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// BpsScale is the basis point denominator (10000 bps = 100%).
const BpsScale = 10000

var (
	bpsScaleDec = decimal.NewFromInt(BpsScale)

	// MaxAmount is the largest representable principal (signed 128-bit range).
	MaxAmount = decimal.RequireFromString("170141183460469231731687303715884105727")
)

var (
	ErrNotInteger  = errors.New("amount must be a whole number of asset units")
	ErrNotPositive = errors.New("amount must be positive")
	ErrOutOfRange  = errors.New("amount exceeds the representable range")
	ErrInvalidBps  = errors.New("bps must be between 0 and 10000")
)

// ValidateAmount checks that amount is a positive integer within range.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsInteger() {
		return ErrNotInteger
	}
	if amount.Sign() <= 0 {
		return ErrNotPositive
	}
	if amount.Cmp(MaxAmount) > 0 {
		return ErrOutOfRange
	}
	return nil
}

// ValidateBps checks that bps is a valid basis point rate.
func ValidateBps(bps int) error {
	if bps < 0 || bps > BpsScale {
		return ErrInvalidBps
	}
	return nil
}

// Split divides amount between the payee and the platform at the given fee
// rate. The payee share is floored and the platform receives the remainder,
// so the two parts always sum to amount exactly.
func Split(amount decimal.Decimal, feeBps int) (payeeShare, fee decimal.Decimal, err error) {
	if err := ValidateBps(feeBps); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	keep := decimal.NewFromInt(int64(BpsScale - feeBps))
	q, r := amount.QuoRem(bpsScaleDec, 0)
	rq, _ := r.Mul(keep).QuoRem(bpsScaleDec, 0)
	payeeShare = q.Mul(keep).Add(rq)
	fee = amount.Sub(payeeShare)
	return payeeShare, fee, nil
}

// Fee returns only the platform share of the split.
func Fee(amount decimal.Decimal, feeBps int) (decimal.Decimal, error) {
	_, fee, err := Split(amount, feeBps)
	return fee, err
}
