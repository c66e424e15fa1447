package engine

import (
	"github.com/shopspring/decimal"
)

// Policy holds the chama-wide rules the engine enforces.
type Policy struct {
	// Quorum is the fraction of a period's contributions that must be
	// confirmed before its payout can be released. It must be above one half.
	Quorum decimal.Decimal

	// PenaltyRate is applied to the amount due of a defaulted contribution.
	PenaltyRate decimal.Decimal

	// PenaltyPoints is added to the member's standing per default.
	PenaltyPoints int
}

var half = decimal.RequireFromString("0.5")

// DefaultPolicy requires every contribution to be confirmed before a payout,
// and penalises a default with 10% of the amount due and one point.
func DefaultPolicy() Policy {
	return Policy{
		Quorum:        decimal.NewFromInt(1),
		PenaltyRate:   decimal.RequireFromString("0.10"),
		PenaltyPoints: 1,
	}
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if !p.Quorum.GreaterThan(half) || p.Quorum.GreaterThan(decimal.NewFromInt(1)) {
		return invalid("quorum %s must be above 0.5 and at most 1", p.Quorum)
	}
	if p.PenaltyRate.IsNegative() || p.PenaltyRate.GreaterThan(decimal.NewFromInt(1)) {
		return invalid("penalty rate %s must be between 0 and 1", p.PenaltyRate)
	}
	if p.PenaltyPoints < 0 {
		return invalid("penalty points cannot be negative")
	}
	return nil
}
