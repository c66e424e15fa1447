// Package calculator holds the pure money arithmetic of the engine:
// contribution splits, penalties, quorum checks and pro-rata allocation.
// All inputs and outputs are int64 minor currency units; fractional rates
// are shopspring decimals so rounding is exact and explicit.
package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidSplit is returned when contribution terms do not add up.
var ErrInvalidSplit = errors.New("invalid contribution split")

// Split is how one contribution is divided.
type Split struct {
	Payout  int64
	Savings int64
	Fee     int64
}

// Total returns the sum of the split components.
func (s Split) Total() int64 {
	return s.Payout + s.Savings + s.Fee
}

// SplitByRates divides a contribution using a service fee rate and a savings
// rate. The fee is taken from the gross amount, savings from what remains
// after the fee. Both round down and the payout absorbs the remainder.
//
// Example: 1000 at 3% fee and 10% savings gives fee 30, savings 97, payout 873.
func SplitByRates(amount int64, feeRate, savingsRate decimal.Decimal) (Split, error) {
	if amount <= 0 {
		return Split{}, fmt.Errorf("%w: contribution amount must be positive", ErrInvalidSplit)
	}
	if err := checkRate("service fee", feeRate); err != nil {
		return Split{}, err
	}
	if err := checkRate("savings", savingsRate); err != nil {
		return Split{}, err
	}

	gross := decimal.NewFromInt(amount)
	fee := gross.Mul(feeRate).Floor().IntPart()
	savings := decimal.NewFromInt(amount - fee).Mul(savingsRate).Floor().IntPart()

	return Split{
		Payout:  amount - fee - savings,
		Savings: savings,
		Fee:     fee,
	}, nil
}

// ValidateSplit checks explicit split amounts against the contribution amount.
func ValidateSplit(amount int64, s Split) error {
	if amount <= 0 {
		return fmt.Errorf("%w: contribution amount must be positive", ErrInvalidSplit)
	}
	if s.Payout <= 0 || s.Savings < 0 || s.Fee < 0 {
		return fmt.Errorf("%w: payout must be positive and savings and fee non-negative", ErrInvalidSplit)
	}
	if s.Total() != amount {
		return fmt.Errorf("%w: %d + %d + %d != %d", ErrInvalidSplit, s.Payout, s.Savings, s.Fee, amount)
	}
	return nil
}

func checkRate(name string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s rate %s must be in [0, 1)", ErrInvalidSplit, name, rate)
	}
	return nil
}

// Penalty returns the penalty for an obligation: amountDue times rate,
// rounded half up to a whole minor unit.
func Penalty(amountDue int64, rate decimal.Decimal) int64 {
	if amountDue <= 0 || !rate.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(amountDue).Mul(rate).Round(0).IntPart()
}
